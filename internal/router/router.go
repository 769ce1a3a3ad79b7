// Package router classifies a parsed RTSP request as either a plain
// RTSP method or one of AirPlay's POST/GET control endpoints (§4.4).
package router

import "strings"

// Kind distinguishes the two classification buckets a request falls
// into.
type Kind int

// Kinds.
const (
	KindRTSP Kind = iota
	KindEndpoint
)

// Endpoint enumerates the AirPlay HTTP-style control endpoints.
type Endpoint int

// Endpoints (§4.4).
const (
	EndpointUnknown Endpoint = iota
	EndpointInfo
	EndpointPairSetup
	EndpointPairVerify
	EndpointFairPlay // unsupported; always 501
	EndpointAuthSetup
	EndpointCommand
	EndpointFeedback
	EndpointAudioMode
)

// authRequired marks the endpoints §4.4 gates behind a Paired session.
var authRequired = map[Endpoint]bool{
	EndpointCommand:   true,
	EndpointFeedback:  true,
	EndpointAudioMode: true,
}

// rtspMethods is the set of methods routed as plain RTSP rather than as
// an HTTP-style endpoint (§4.4).
var rtspMethods = map[string]bool{
	"OPTIONS": true, "SETUP": true, "RECORD": true, "PAUSE": true,
	"FLUSH": true, "TEARDOWN": true, "GET_PARAMETER": true,
	"SET_PARAMETER": true, "ANNOUNCE": true,
}

// Classification is the result of routing one request.
type Classification struct {
	Kind     Kind
	Method   string // set when Kind == KindRTSP
	Endpoint Endpoint
}

// Classify inspects method and the request path (already stripped of
// scheme://host by the caller) and returns how it should be dispatched.
func Classify(method, path string) Classification {
	if rtspMethods[method] {
		return Classification{Kind: KindRTSP, Method: method}
	}

	path = strings.TrimSuffix(path, "/")

	switch {
	case method == "GET" && path == "/info":
		return Classification{Kind: KindEndpoint, Endpoint: EndpointInfo}
	case method == "POST" && path == "/pair-setup":
		return Classification{Kind: KindEndpoint, Endpoint: EndpointPairSetup}
	case method == "POST" && path == "/pair-verify":
		return Classification{Kind: KindEndpoint, Endpoint: EndpointPairVerify}
	case method == "POST" && path == "/fp-setup":
		return Classification{Kind: KindEndpoint, Endpoint: EndpointFairPlay}
	case method == "POST" && path == "/auth-setup":
		return Classification{Kind: KindEndpoint, Endpoint: EndpointAuthSetup}
	case method == "POST" && path == "/command":
		return Classification{Kind: KindEndpoint, Endpoint: EndpointCommand}
	case method == "POST" && path == "/feedback":
		return Classification{Kind: KindEndpoint, Endpoint: EndpointFeedback}
	case method == "POST" && path == "/audioMode":
		return Classification{Kind: KindEndpoint, Endpoint: EndpointAudioMode}
	default:
		return Classification{Kind: KindEndpoint, Endpoint: EndpointUnknown}
	}
}

// RequiresAuth reports whether an endpoint must be refused with 470 when
// the session isn't Paired.
func RequiresAuth(e Endpoint) bool {
	return authRequired[e]
}
