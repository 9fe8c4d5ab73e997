package handler

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"storefront/internal/guard"
)

// jsonrpcRequest is a JSON-RPC 2.0 request structure for testing.
type jsonrpcRequest struct {
	JSONRPC string `json:"jsonrpc"`
	ID      any    `json:"id"`
	Method  string `json:"method"`
	Params  any    `json:"params,omitempty"`
}

// jsonrpcResponse is a JSON-RPC 2.0 response structure for testing.
type jsonrpcResponse struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      any             `json:"id"`
	Result  json.RawMessage `json:"result,omitempty"`
	Error   *jsonrpcError   `json:"error,omitempty"`
}

type jsonrpcError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// toolCallParams represents the params for tools/call method.
type toolCallParams struct {
	Name      string `json:"name"`
	Arguments any    `json:"arguments,omitempty"`
}

// callToolResult is the expected result structure from a tool call.
type callToolResult struct {
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text,omitempty"`
	} `json:"content"`
	IsError bool `json:"isError,omitempty"`
}

func (r callToolResult) text() string {
	if len(r.Content) == 0 {
		return ""
	}
	return r.Content[0].Text
}

func TestMCPServerCreation(t *testing.T) {
	env := newTestEnv(testFake())

	require.NotNil(t, env.handler.NewMCPServer())
	require.NotNil(t, env.handler.NewMCPHandler())
}

func TestMCPInitialize(t *testing.T) {
	env := newTestEnv(testFake())

	resp := postMCP(t, env.mux, "", jsonrpcRequest{
		JSONRPC: "2.0",
		ID:      1,
		Method:  "initialize",
		Params: map[string]any{
			"protocolVersion": "2025-06-18",
			"clientInfo":      map[string]string{"name": "test-client", "version": "1.0.0"},
			"capabilities":    map[string]any{},
		},
	})

	require.Nil(t, resp.Error)
	require.NotEmpty(t, resp.Result)
}

func TestMCPToolsList(t *testing.T) {
	env := newTestEnv(testFake())
	sessionID := initMCPSession(t, env.mux)

	resp := postMCP(t, env.mux, sessionID, jsonrpcRequest{
		JSONRPC: "2.0",
		ID:      2,
		Method:  "tools/list",
	})
	require.Nil(t, resp.Error)

	var toolsResult struct {
		Tools []struct {
			Name        string `json:"name"`
			Description string `json:"description"`
		} `json:"tools"`
	}
	require.NoError(t, json.Unmarshal(resp.Result, &toolsResult))

	var names []string
	for _, tool := range toolsResult.Tools {
		require.NotEmpty(t, tool.Description, tool.Name)
		names = append(names, tool.Name)
	}
	require.Subset(t, names, []string{
		"list_collections",
		"list_products",
		"get_cart",
		"add_to_cart",
		"remove_from_cart",
		"clear_cart",
		"get_checkout_url",
		"track_order",
	})
}

func TestMCPListProducts(t *testing.T) {
	env := newTestEnv(testFake())
	sessionID := initMCPSession(t, env.mux)

	tests := []struct {
		name      string
		args      map[string]any
		wantTitle string
	}{
		{"collection", map[string]any{"handle": "tees"}, "Tee"},
		{"all products", map[string]any{}, "Mug"},
		{"all products page 2", map[string]any{"page": 2}, "Tee"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := callTool(t, env.mux, sessionID, "list_products", tt.args)
			require.False(t, result.IsError, result.text())

			var page productPage
			require.NoError(t, json.Unmarshal([]byte(result.text()), &page))
			require.Len(t, page.Items, 1)
			require.Equal(t, tt.wantTitle, page.Items[0].Title)
		})
	}
}

func TestMCPAddToCartAndCheckout(t *testing.T) {
	env := newTestEnv(testFake())
	sessionID := initMCPSession(t, env.mux)

	result := callTool(t, env.mux, sessionID, "get_checkout_url", map[string]any{})
	require.True(t, result.IsError, "an empty cart has no checkout URL")
	require.True(t, strings.HasPrefix(result.text(), "CART_EMPTY:"), result.text())

	result = callTool(t, env.mux, sessionID, "add_to_cart", map[string]any{
		"product_id": mugProduct,
		"variant_id": mugVariant,
	})
	require.False(t, result.IsError, result.text())
	var cart cartResponse
	require.NoError(t, json.Unmarshal([]byte(result.text()), &cart))
	require.Equal(t, 1, cart.TotalQuantity)

	result = callTool(t, env.mux, sessionID, "get_checkout_url", map[string]any{})
	require.False(t, result.IsError, result.text())
	var out URLOutput
	require.NoError(t, json.Unmarshal([]byte(result.text()), &out))
	require.Equal(t, cart.CheckoutURL, out.URL)
}

func TestMCPAddToCartDuplicateDesign(t *testing.T) {
	env := newTestEnv(testFake())
	sessionID := initMCPSession(t, env.mux)

	args := map[string]any{
		"product_id": mugProduct,
		"variant_id": mugVariant,
		"attributes": map[string]string{guard.DefaultMarker: "design-1"},
	}
	result := callTool(t, env.mux, sessionID, "add_to_cart", args)
	require.False(t, result.IsError, result.text())

	result = callTool(t, env.mux, sessionID, "add_to_cart", args)
	require.True(t, result.IsError, "a second design for the same product is rejected")
	require.True(t, strings.HasPrefix(result.text(), "DUPLICATE_CUSTOM_DESIGN:"), result.text())
}

func TestMCPRemoveAndClear(t *testing.T) {
	env := newTestEnv(testFake())
	sessionID := initMCPSession(t, env.mux)

	callTool(t, env.mux, sessionID, "add_to_cart", map[string]any{"variant_id": mugVariant})
	callTool(t, env.mux, sessionID, "add_to_cart", map[string]any{"variant_id": teeVariant})

	line := env.rec.Projection().Lines[0]
	result := callTool(t, env.mux, sessionID, "remove_from_cart", map[string]any{"line_id": line.LineID})
	require.False(t, result.IsError, result.text())
	require.Equal(t, 1, env.rec.Projection().TotalQuantity)

	result = callTool(t, env.mux, sessionID, "clear_cart", map[string]any{})
	require.False(t, result.IsError, result.text())
	require.Zero(t, env.rec.Projection().TotalQuantity)
}

func TestMCPTrackOrder(t *testing.T) {
	env := newTestEnv(testFake())
	sessionID := initMCPSession(t, env.mux)

	result := callTool(t, env.mux, sessionID, "track_order", map[string]any{
		"order_number": "#1001",
		"email":        "ada@example.com",
	})
	require.False(t, result.IsError, result.text())
	var out URLOutput
	require.NoError(t, json.Unmarshal([]byte(result.text()), &out))
	require.Equal(t, "https://shop.example/tools/order-status?email=ada%40example.com&order_number=1001", out.URL)

	result = callTool(t, env.mux, sessionID, "track_order", map[string]any{
		"order_number": "1001",
		"email":        "nope",
	})
	require.True(t, result.IsError)
	require.True(t, strings.HasPrefix(result.text(), "VALIDATION_ERROR:"), result.text())
}

// setMCPHeaders sets the required headers for MCP Streamable HTTP requests.
func setMCPHeaders(req *http.Request, sessionID string) {
	req.Header.Set("Content-Type", "application/json")
	// MCP Streamable HTTP requires Accept header with both json and event-stream
	req.Header.Set("Accept", "application/json, text/event-stream")
	if sessionID != "" {
		req.Header.Set("Mcp-Session-Id", sessionID)
	}
}

// parseSSEResponse extracts JSON data from SSE formatted response.
// SSE format: "event: message\ndata: {json}\n\n"
func parseSSEResponse(body string) []byte {
	for _, line := range strings.Split(body, "\n") {
		if data, ok := strings.CutPrefix(line, "data: "); ok {
			return []byte(data)
		}
	}
	// If no SSE format found, assume plain JSON
	return []byte(body)
}

// postMCP sends one JSON-RPC request and decodes the response.
func postMCP(t *testing.T, mux *http.ServeMux, sessionID string, req jsonrpcRequest) jsonrpcResponse {
	t.Helper()

	body, _ := json.Marshal(req)
	httpReq := httptest.NewRequest("POST", "/mcp", bytes.NewReader(body))
	setMCPHeaders(httpReq, sessionID)
	w := httptest.NewRecorder()

	mux.ServeHTTP(w, httpReq)

	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var resp jsonrpcResponse
	require.NoError(t, json.Unmarshal(parseSSEResponse(w.Body.String()), &resp), w.Body.String())
	return resp
}

// callTool invokes a tool and returns its result. Tool errors are returned
// in the result, not as JSON-RPC errors.
func callTool(t *testing.T, mux *http.ServeMux, sessionID, name string, args map[string]any) callToolResult {
	t.Helper()

	resp := postMCP(t, mux, sessionID, jsonrpcRequest{
		JSONRPC: "2.0",
		ID:      2,
		Method:  "tools/call",
		Params:  toolCallParams{Name: name, Arguments: args},
	})
	require.Nil(t, resp.Error, "tool errors belong in the result")

	var result callToolResult
	require.NoError(t, json.Unmarshal(resp.Result, &result))
	return result
}

// initMCPSession initializes an MCP session and returns the session ID.
func initMCPSession(t *testing.T, mux *http.ServeMux) string {
	t.Helper()

	initReq := jsonrpcRequest{
		JSONRPC: "2.0",
		ID:      1,
		Method:  "initialize",
		Params: map[string]any{
			"protocolVersion": "2025-06-18",
			"clientInfo":      map[string]string{"name": "test", "version": "1.0"},
			"capabilities":    map[string]any{},
		},
	}

	body, _ := json.Marshal(initReq)
	httpReq := httptest.NewRequest("POST", "/mcp", bytes.NewReader(body))
	setMCPHeaders(httpReq, "")
	w := httptest.NewRecorder()

	mux.ServeHTTP(w, httpReq)

	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	return w.Header().Get("Mcp-Session-Id")
}
