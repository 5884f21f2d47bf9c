package handlers

import (
	"bufio"
	"compress/gzip"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/andybalholm/brotli"
	"github.com/pkoukk/tiktoken-go"

	"github.com/Davincible/chat-dialect-router/internal/config"
	"github.com/Davincible/chat-dialect-router/internal/dialects"
	"github.com/Davincible/chat-dialect-router/internal/prompt"
)

// longContextThreshold routes oversized conversations to the long-context
// model bucket.
const longContextThreshold = 60000

// CompileHandler accepts a canonical chat request, compiles it for the
// selected provider's dialect and forwards the wire body upstream, relaying
// the (possibly streamed) response verbatim.
type CompileHandler struct {
	config   *config.Manager
	registry *dialects.Registry
	logger   *slog.Logger
	client   *http.Client
}

func NewCompileHandler(cfgMgr *config.Manager, registry *dialects.Registry, logger *slog.Logger) *CompileHandler {
	return &CompileHandler{
		config:   cfgMgr,
		registry: registry,
		logger:   logger,
		client:   http.DefaultClient,
	}
}

func (h *CompileHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	cfg := h.config.Get()

	rawBody, err := io.ReadAll(r.Body)
	if err != nil {
		h.httpError(w, http.StatusBadRequest, "failed to read request body: %v", err)
		return
	}

	req, err := prompt.DecodeRequest(rawBody)
	if err != nil {
		h.httpError(w, http.StatusBadRequest, "invalid canonical request: %v", err)
		return
	}

	inputTokens := h.countInputTokens(string(rawBody))

	providerName, model := h.selectModel(req, inputTokens, &cfg.Router)
	req.Model = model

	h.applyCacheDefaults(req, cfg)

	providerCfg, compiler, err := h.resolveProvider(providerName, cfg)
	if err != nil {
		h.httpError(w, http.StatusBadRequest, "provider not found: %v", err)
		return
	}

	wireBody, err := compiler.Compile(req)
	if err != nil {
		h.httpError(w, http.StatusUnprocessableEntity, "compile failed for dialect %s: %v", compiler.Name(), err)
		return
	}

	upstream, err := http.NewRequestWithContext(r.Context(), http.MethodPost, providerCfg.APIBase, strings.NewReader(string(wireBody)))
	if err != nil {
		h.httpError(w, http.StatusInternalServerError, "failed to create upstream request: %v", err)
		return
	}

	upstream.Header.Set("Content-Type", "application/json")
	if providerCfg.APIKey != "" {
		upstream.Header.Set("Authorization", "Bearer "+providerCfg.APIKey)
	}

	h.logger.Info("Forwarding compiled request",
		"dialect", compiler.Name(),
		"provider", providerCfg.Name,
		"model", model,
		"url", providerCfg.APIBase,
		"input_tokens", inputTokens,
		"stream", req.Stream,
	)

	resp, err := h.client.Do(upstream)
	if err != nil {
		h.httpError(w, http.StatusBadGateway, "upstream request failed: %v", err)
		return
	}
	defer resp.Body.Close()

	if isStreamingResponse(resp.Header) {
		h.relayStream(w, resp)
	} else {
		h.relayResponse(w, resp)
	}
}

// relayStream forwards server-sent events verbatim, flushing per line.
func (h *CompileHandler) relayStream(w http.ResponseWriter, resp *http.Response) {
	bodyReader, err := h.decompressReader(resp)
	if err != nil {
		h.httpError(w, http.StatusBadGateway, "decompression error: %v", err)
		return
	}
	if closer, ok := bodyReader.(io.Closer); ok {
		defer closer.Close()
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	h.copyHeaders(w, resp)
	w.WriteHeader(resp.StatusCode)

	scanner := bufio.NewScanner(bodyReader)
	for scanner.Scan() {
		fmt.Fprintf(w, "%s\n", scanner.Text())
		h.flushResponse(w)
	}

	if err := scanner.Err(); err != nil {
		h.logger.Error("Stream relay error", "error", err)
	}

	h.logger.Info("Completed streaming relay", "status", resp.StatusCode)
}

func (h *CompileHandler) relayResponse(w http.ResponseWriter, resp *http.Response) {
	bodyReader, err := h.decompressReader(resp)
	if err != nil {
		h.httpError(w, http.StatusBadGateway, "decompression error: %v", err)
		return
	}
	if closer, ok := bodyReader.(io.Closer); ok {
		defer closer.Close()
	}

	respBody, err := io.ReadAll(bodyReader)
	if err != nil {
		h.httpError(w, http.StatusBadGateway, "failed to read upstream response: %v", err)
		return
	}

	if resp.StatusCode != http.StatusOK {
		h.logger.Error("Upstream error response", "status", resp.StatusCode, "body", string(respBody))
	}

	h.copyHeaders(w, resp)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(resp.StatusCode)
	w.Write(respBody)
}

func (h *CompileHandler) resolveProvider(providerName string, cfg *config.Config) (*config.Provider, dialects.Compiler, error) {
	providerCfg, found := cfg.FindProvider(providerName)
	if !found {
		return nil, nil, fmt.Errorf("provider %q not found in configuration", providerName)
	}

	if providerCfg.Dialect != "" {
		compiler, ok := h.registry.Get(providerCfg.Dialect)
		if !ok {
			return nil, nil, fmt.Errorf("%w: %s", dialects.ErrUnknownDialect, providerCfg.Dialect)
		}

		return providerCfg, compiler, nil
	}

	compiler, err := h.registry.GetByDomain(providerCfg.APIBase)
	if err != nil {
		return nil, nil, err
	}

	return providerCfg, compiler, nil
}

// selectModel picks a "provider,model" routing target from the configured
// buckets and splits it.
func (h *CompileHandler) selectModel(req *prompt.Request, tokens int, routerCfg *config.RouterConfig) (provider, model string) {
	var selected string

	switch {
	case tokens > longContextThreshold && routerCfg.LongContext != "":
		selected = routerCfg.LongContext
	case req.ReasoningEffort != "" && req.ReasoningEffort != "auto" && routerCfg.Think != "":
		selected = routerCfg.Think
	case req.EnableWebSearch && routerCfg.WebSearch != "":
		selected = routerCfg.WebSearch
	case req.Model != "":
		selected = req.Model
	default:
		selected = routerCfg.Default
	}

	parts := strings.SplitN(selected, ",", 2)
	if len(parts) == 2 {
		return strings.TrimSpace(parts[0]), strings.TrimSpace(parts[1])
	}

	// Bare model names route through the default bucket's provider.
	if defParts := strings.SplitN(routerCfg.Default, ",", 2); len(defParts) == 2 {
		return strings.TrimSpace(defParts[0]), strings.TrimSpace(parts[0])
	}

	return "", strings.TrimSpace(parts[0])
}

func (h *CompileHandler) applyCacheDefaults(req *prompt.Request, cfg *config.Config) {
	if req.CacheTTL == "" && cfg.Cache.TTL != "" {
		req.CacheTTL = cfg.Cache.TTL
	}

	if req.CachingAtDepth < 0 && cfg.Cache.CachingAtDepth != nil {
		req.CachingAtDepth = *cfg.Cache.CachingAtDepth
	}
}

func (h *CompileHandler) countInputTokens(text string) int {
	tke, err := tiktoken.GetEncoding("cl100k_base")
	if err != nil {
		h.logger.Error("Failed to get tiktoken encoding", "error", err)
		return 0
	}
	return len(tke.Encode(text, nil, nil))
}

func isStreamingResponse(headers http.Header) bool {
	contentType := headers.Get("Content-Type")
	return contentType == "text/event-stream" || strings.Contains(contentType, "stream")
}

func (h *CompileHandler) decompressReader(resp *http.Response) (io.Reader, error) {
	var bodyReader io.Reader = resp.Body
	encoding := resp.Header.Get("Content-Encoding")

	switch encoding {
	case "gzip":
		gzipReader, err := gzip.NewReader(resp.Body)
		if err != nil {
			return nil, err
		}
		bodyReader = gzipReader
	case "br":
		bodyReader = brotli.NewReader(resp.Body)
	}

	return bodyReader, nil
}

func (h *CompileHandler) copyHeaders(w http.ResponseWriter, resp *http.Response) {
	for key, values := range resp.Header {
		// Skip compression headers since we handle decompression
		if key == "Content-Encoding" || key == "Content-Length" {
			continue
		}
		for _, value := range values {
			w.Header().Add(key, value)
		}
	}
}

func (h *CompileHandler) flushResponse(w http.ResponseWriter) {
	if flusher, ok := w.(http.Flusher); ok {
		flusher.Flush()
	}
}

func (h *CompileHandler) httpError(w http.ResponseWriter, code int, format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	h.logger.Error("HTTP Error", "code", code, "message", msg)
	http.Error(w, msg, code)
}
