package resource

import (
	"net/http"
	"net/http/httputil"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

const redacted = "[REDACTED]"

func dumpRequest(req *http.Request) {
	if !debugEnabled() {
		return
	}

	clone := req.Clone(req.Context())
	withBody := false
	if req.GetBody != nil {
		if body, err := req.GetBody(); err == nil {
			clone.Body = body
			withBody = true
		}
	}
	if clone.Header.Get(HeaderAuthorization) != "" {
		clone.Header.Set(HeaderAuthorization, redacted)
	}

	dump, err := httputil.DumpRequestOut(clone, withBody)
	if err != nil {
		log.Debug().Err(err).Str("url", req.URL.Redacted()).Msg("unable to dump request")
		return
	}
	log.Debug().
		Str("method", req.Method).
		Str("url", req.URL.Redacted()).
		Str("request_id", req.Header.Get(HeaderRequestID)).
		Msg(string(dump))
}

func dumpResponse(resp *http.Response, withBody bool) {
	if !debugEnabled() {
		return
	}

	dump, err := httputil.DumpResponse(resp, withBody)
	if err != nil {
		log.Debug().Err(err).Msg("unable to dump response")
		return
	}
	event := log.Debug().Int("status", resp.StatusCode)
	if resp.Request != nil {
		event = event.Str("request_id", resp.Request.Header.Get(HeaderRequestID))
	}
	event.Msg(string(dump))
}

func debugEnabled() bool {
	return zerolog.GlobalLevel() <= zerolog.DebugLevel && log.Logger.GetLevel() <= zerolog.DebugLevel
}
