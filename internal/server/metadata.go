package server

import (
	"context"
	"net"
	"strings"

	"github.com/google/uuid"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/peer"
)

// Request headers clients send alongside calls.
const (
	HeaderAuthorization = "authorization"
	HeaderUserAgent     = "user-agent"
	HeaderRealIP        = "x-real-ip"
	HeaderForwardedFor  = "x-forwarded-for"
	HeaderDeviceID      = "x-device-id"
	HeaderPlatform      = "x-platform"
	HeaderDeviceModel   = "x-device-model"
	HeaderOSVersion     = "x-os-version"
	HeaderAppVersion    = "x-app-version"
	HeaderPushToken     = "x-push-token"

	DefaultPlatform = "android"
)

// ClientInfo is what the transport knows about the caller.
type ClientInfo struct {
	IP          string
	UserAgent   *string
	DeviceID    uuid.UUID
	Platform    string
	DeviceModel *string
	OSVersion   *string
	AppVersion  *string
	PushToken   *string
}

// ClientInfoFromContext reads caller headers. A missing x-device-id
// yields uuid.Nil, so anonymous clients of one user share a device row.
// A malformed one is an error.
func ClientInfoFromContext(ctx context.Context) (ClientInfo, error) {
	md, _ := metadata.FromIncomingContext(ctx)

	info := ClientInfo{
		IP:          ClientIP(ctx),
		UserAgent:   header(md, HeaderUserAgent),
		Platform:    DefaultPlatform,
		DeviceModel: header(md, HeaderDeviceModel),
		OSVersion:   header(md, HeaderOSVersion),
		AppVersion:  header(md, HeaderAppVersion),
		PushToken:   header(md, HeaderPushToken),
	}
	if p := header(md, HeaderPlatform); p != nil {
		info.Platform = *p
	}
	if raw := header(md, HeaderDeviceID); raw != nil {
		id, err := uuid.Parse(*raw)
		if err != nil {
			return ClientInfo{}, err
		}
		info.DeviceID = id
	}
	return info, nil
}

// ClientIP prefers proxy headers and falls back to the transport peer.
func ClientIP(ctx context.Context) string {
	md, _ := metadata.FromIncomingContext(ctx)
	if v := header(md, HeaderRealIP); v != nil {
		return *v
	}
	if v := header(md, HeaderForwardedFor); v != nil {
		return strings.TrimSpace(strings.Split(*v, ",")[0])
	}
	if p, ok := peer.FromContext(ctx); ok && p.Addr != nil {
		addr := p.Addr.String()
		if host, _, err := net.SplitHostPort(addr); err == nil {
			return host
		}
		return addr
	}
	return "unknown"
}

// BearerToken extracts the token from "authorization: Bearer <token>".
func BearerToken(ctx context.Context) (string, bool) {
	md, _ := metadata.FromIncomingContext(ctx)
	v := header(md, HeaderAuthorization)
	if v == nil {
		return "", false
	}
	scheme, tok, found := strings.Cut(*v, " ")
	if !found || !strings.EqualFold(scheme, "bearer") {
		return "", false
	}
	tok = strings.TrimSpace(tok)
	return tok, tok != ""
}

func header(md metadata.MD, key string) *string {
	vals := md.Get(key)
	if len(vals) == 0 {
		return nil
	}
	v := strings.TrimSpace(vals[0])
	if v == "" {
		return nil
	}
	return &v
}
