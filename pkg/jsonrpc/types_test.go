package jsonrpc

import (
	"encoding/json"
	"testing"
)

func TestNewErrorResponse(t *testing.T) {
	id := json.RawMessage(`"call-greet-1"`)
	resp := NewErrorResponse(&id, MethodNotFound, "unknown tool: greet")

	if resp.JSONRPC != "2.0" {
		t.Errorf("JSONRPC = %q, want %q", resp.JSONRPC, "2.0")
	}
	if resp.ID == nil || string(*resp.ID) != `"call-greet-1"` {
		t.Errorf("ID = %v, want %q", resp.ID, `"call-greet-1"`)
	}
	if resp.Result != nil {
		t.Errorf("Result = %v, want nil", resp.Result)
	}
	if resp.Error == nil {
		t.Fatal("Error = nil, want non-nil")
	}
	if resp.Error.Code != MethodNotFound {
		t.Errorf("Error.Code = %d, want %d", resp.Error.Code, MethodNotFound)
	}
	if resp.Error.Message != "unknown tool: greet" {
		t.Errorf("Error.Message = %q, want %q", resp.Error.Message, "unknown tool: greet")
	}
}

func TestNewErrorResponse_NilID(t *testing.T) {
	resp := NewErrorResponse(nil, ParseError, "malformed tool call envelope")

	if resp.ID != nil {
		t.Errorf("ID = %v, want nil", resp.ID)
	}
	if resp.Error == nil || resp.Error.Code != ParseError {
		t.Errorf("Error.Code = %d, want %d", resp.Error.Code, ParseError)
	}
}

func TestNewSuccessResponse(t *testing.T) {
	id := json.RawMessage(`7`)
	result := map[string]any{"canister_id": "rdmx6-jaaaa-aaaaa-aaadq-cai", "cycles_remaining": 42}
	resp := NewSuccessResponse(&id, result)

	if resp.JSONRPC != "2.0" {
		t.Errorf("JSONRPC = %q, want %q", resp.JSONRPC, "2.0")
	}
	if resp.ID == nil || string(*resp.ID) != "7" {
		t.Errorf("ID = %v, want %q", resp.ID, "7")
	}
	if resp.Error != nil {
		t.Errorf("Error = %v, want nil", resp.Error)
	}
	if resp.Result == nil {
		t.Fatal("Result = nil, want non-nil")
	}

	var decoded map[string]any
	if err := json.Unmarshal(resp.Result, &decoded); err != nil {
		t.Fatalf("Unmarshal Result: %v", err)
	}
	if decoded["canister_id"] != "rdmx6-jaaaa-aaaaa-aaadq-cai" {
		t.Errorf("Result[canister_id] = %q, want %q", decoded["canister_id"], "rdmx6-jaaaa-aaaaa-aaadq-cai")
	}
}

func TestNewSuccessResponse_NilResult(t *testing.T) {
	id := json.RawMessage(`"call-2"`)
	resp := NewSuccessResponse(&id, nil)

	if resp.Result != nil {
		t.Errorf("Result = %v, want nil", resp.Result)
	}
}

func TestRequest_JSON_RoundTrip(t *testing.T) {
	id := json.RawMessage(`"call-3"`)
	req := Request{
		JSONRPC: "2.0",
		ID:      &id,
		Method:  "tools/call",
		Params:  json.RawMessage(`{"name":"get_balance","arguments":{"account":"aaaaa-aa"}}`),
	}

	data, err := json.Marshal(req)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}

	var decoded Request
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}

	if decoded.JSONRPC != "2.0" {
		t.Errorf("JSONRPC = %q, want %q", decoded.JSONRPC, "2.0")
	}
	if decoded.Method != "tools/call" {
		t.Errorf("Method = %q, want %q", decoded.Method, "tools/call")
	}

	var params struct {
		Name string `json:"name"`
	}
	if err := json.Unmarshal(decoded.Params, &params); err != nil {
		t.Fatalf("Unmarshal Params: %v", err)
	}
	if params.Name != "get_balance" {
		t.Errorf("Params.Name = %q, want %q", params.Name, "get_balance")
	}
}

func TestResponse_JSON_RoundTrip(t *testing.T) {
	resp := NewSuccessResponse(nil, []string{"get_balance", "transfer", "get_block"})

	data, err := json.Marshal(resp)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}

	var decoded Response
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}

	if decoded.JSONRPC != "2.0" {
		t.Errorf("JSONRPC = %q, want %q", decoded.JSONRPC, "2.0")
	}
	if decoded.Error != nil {
		t.Errorf("Error = %v, want nil", decoded.Error)
	}
	if decoded.Result == nil {
		t.Fatal("Result = nil, want non-nil")
	}

	var tools []string
	if err := json.Unmarshal(decoded.Result, &tools); err != nil {
		t.Fatalf("Unmarshal Result: %v", err)
	}
	if len(tools) != 3 || tools[0] != "get_balance" {
		t.Errorf("tools = %v, want [get_balance transfer get_block]", tools)
	}
}

func TestErrorCodes(t *testing.T) {
	tests := []struct {
		name string
		code int
		want int
	}{
		{"ParseError", ParseError, -32700},
		{"InvalidRequest", InvalidRequest, -32600},
		{"MethodNotFound", MethodNotFound, -32601},
		{"InvalidParams", InvalidParams, -32602},
		{"InternalError", InternalError, -32603},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.code != tt.want {
				t.Errorf("%s = %d, want %d", tt.name, tt.code, tt.want)
			}
		})
	}
}

func TestNewErrorResponse_CanisterRejectCarriesData(t *testing.T) {
	id := json.RawMessage(`"call-4"`)
	resp := NewErrorResponse(&id, InternalError, "canister rejected the call")
	resp.Error.Data = map[string]string{"reject_code": "5", "reject_message": "canister trapped"}

	data, err := json.Marshal(resp)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}

	var decoded Response
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if decoded.Error == nil {
		t.Fatal("Error = nil, want non-nil")
	}
	rejectData, ok := decoded.Error.Data.(map[string]any)
	if !ok {
		t.Fatalf("Error.Data = %v (%T), want map[string]any", decoded.Error.Data, decoded.Error.Data)
	}
	if rejectData["reject_code"] != "5" {
		t.Errorf("Error.Data[reject_code] = %v, want %q", rejectData["reject_code"], "5")
	}
}
