// Package sdp parses and builds the Session Description Protocol bodies
// carried in ANNOUNCE requests (§4.8, §6), wrapping pion/sdp/v3 the way
// mediamtx and other RTP-based repos in the retrieved pack do instead of
// hand-rolling SDP grammar.
package sdp

import (
	"encoding/base64"
	"fmt"
	"strconv"
	"strings"

	"github.com/pion/sdp/v3"
)

// StreamParameters is the subset of an ANNOUNCE body's SDP the receiver
// needs (§3 "StreamParameters").
type StreamParameters struct {
	SampleRate      int
	Channels        int
	BitsPerSample   int
	SamplesPerPacket int
	CodecID         string // "AppleLossless", "L16", "mpeg4-generic"
	RSAAESKey       []byte // base64-decoded, still RSA-wrapped
	AESIV           []byte
	FmtpFields      []string
}

// Parse extracts StreamParameters from a raw SDP body.
func Parse(body []byte) (StreamParameters, error) {
	var sd sdp.SessionDescription
	if err := sd.Unmarshal(body); err != nil {
		return StreamParameters{}, fmt.Errorf("sdp: %w", err)
	}

	var params StreamParameters
	for _, m := range sd.MediaDescriptions {
		if m.MediaName.Media != "audio" {
			continue
		}
		for _, attr := range m.Attributes {
			switch attr.Key {
			case "rtpmap":
				parseRtpmap(attr.Value, &params)
			case "fmtp":
				parseFmtp(attr.Value, &params)
				params.FmtpFields = strings.Fields(attr.Value)
			case "rsaaeskey":
				params.RSAAESKey, _ = base64.StdEncoding.DecodeString(attr.Value)
			case "aesiv":
				params.AESIV, _ = base64.StdEncoding.DecodeString(attr.Value)
			}
		}
	}
	return params, nil
}

func parseRtpmap(value string, params *StreamParameters) {
	// "96 AppleLossless" or "96 L16/44100/2" or "96 mpeg4-generic/44100/2"
	fields := strings.Fields(value)
	if len(fields) < 2 {
		return
	}
	parts := strings.Split(fields[1], "/")
	params.CodecID = parts[0]
	if len(parts) >= 2 {
		if v, err := strconv.Atoi(parts[1]); err == nil {
			params.SampleRate = v
		}
	}
	if len(parts) >= 3 {
		if v, err := strconv.Atoi(parts[2]); err == nil {
			params.Channels = v
		}
	}
}

func parseFmtp(value string, params *StreamParameters) {
	// "96 <frames> <?> <depth> <?> <?> <?> <ch> 255 0 0 <rate>"
	fields := strings.Fields(value)
	if len(fields) < 12 {
		return
	}
	if v, err := strconv.Atoi(fields[1]); err == nil {
		params.SamplesPerPacket = v
	}
	if v, err := strconv.Atoi(fields[3]); err == nil {
		params.BitsPerSample = v
	}
	if v, err := strconv.Atoi(fields[7]); err == nil {
		params.Channels = v
	}
	if v, err := strconv.Atoi(fields[11]); err == nil {
		params.SampleRate = v
	}
}

// Build constructs an ANNOUNCE-style SDP body for the given parameters,
// mirroring the `v=0 / o=iTunes ... / m=audio 0 RTP/AVP 96` shape of §6.
func Build(params StreamParameters, sessionID, originAddr string) []byte {
	sd := &sdp.SessionDescription{
		Version: 0,
		Origin: sdp.Origin{
			Username:       "iTunes",
			SessionID:      mustParseUint(sessionID),
			SessionVersion: 0,
			NetworkType:    "IN",
			AddressType:    "IP4",
			UnicastAddress: originAddr,
		},
		SessionName: "iTunes",
		TimeDescriptions: []sdp.TimeDescription{
			{Timing: sdp.Timing{StartTime: 0, StopTime: 0}},
		},
		MediaDescriptions: []*sdp.MediaDescription{
			{
				MediaName: sdp.MediaName{
					Media:   "audio",
					Port:    sdp.RangedPort{Value: 0},
					Protos:  []string{"RTP", "AVP"},
					Formats: []string{"96"},
				},
				Attributes: buildAttributes(params),
			},
		},
	}

	out, err := sd.Marshal()
	if err != nil {
		return nil
	}
	return out
}

func buildAttributes(params StreamParameters) []sdp.Attribute {
	rtpmap := fmt.Sprintf("96 %s", params.CodecID)
	fmtp := fmt.Sprintf("96 %d 0 %d 0 0 0 %d 255 0 0 %d",
		params.SamplesPerPacket, params.BitsPerSample, params.Channels, params.SampleRate)

	attrs := []sdp.Attribute{
		{Key: "rtpmap", Value: rtpmap},
		{Key: "fmtp", Value: fmtp},
	}
	if len(params.RSAAESKey) > 0 {
		attrs = append(attrs, sdp.Attribute{Key: "rsaaeskey", Value: base64.StdEncoding.EncodeToString(params.RSAAESKey)})
	}
	if len(params.AESIV) > 0 {
		attrs = append(attrs, sdp.Attribute{Key: "aesiv", Value: base64.StdEncoding.EncodeToString(params.AESIV)})
	}
	return attrs
}

func mustParseUint(s string) uint64 {
	v, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		return 0
	}
	return v
}
