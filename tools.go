package gocas

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
)

// ============================================================
// MCP tool interface
// ============================================================

type ToolRequest struct {
	Tool   string                 `json:"tool"`
	Params map[string]interface{} `json:"params"`
}

type ToolResponse struct {
	Result    interface{} `json:"result,omitempty"`
	LaTeX     string      `json:"latex,omitempty"`
	String    string      `json:"string,omitempty"`
	Kind      string      `json:"kind,omitempty"`
	Technique string      `json:"technique,omitempty"`
	Reason    string      `json:"reason,omitempty"`
	Trace     []TraceStep `json:"trace,omitempty"`
	Error     string      `json:"error,omitempty"`
}

// HandleToolCall dispatches one tool request. The context bounds the
// integrate tool; everything else returns promptly.
func HandleToolCall(ctx context.Context, req ToolRequest) ToolResponse {
	getExpr := func(key string) (Expr, error) {
		v, ok := req.Params[key]
		if !ok {
			return nil, fmt.Errorf("missing param: %s", key)
		}
		val, ok := v.(map[string]interface{})
		if !ok {
			return nil, fmt.Errorf("invalid type for param %s", key)
		}
		return FromJSON(val)
	}
	getString := func(key string) (string, error) {
		v, ok := req.Params[key]
		if !ok {
			return "", fmt.Errorf("missing param: %s", key)
		}
		s, ok := v.(string)
		if !ok {
			return "", fmt.Errorf("param %s must be a string", key)
		}
		return s, nil
	}
	respond := func(e Expr) ToolResponse {
		return ToolResponse{Result: e.toJSON(), LaTeX: LaTeX(e), String: String(e)}
	}

	switch req.Tool {
	case "simplify":
		e, err := getExpr("expr")
		if err != nil {
			return ToolResponse{Error: err.Error()}
		}
		return respond(Simplify(e))

	case "expand":
		e, err := getExpr("expr")
		if err != nil {
			return ToolResponse{Error: err.Error()}
		}
		return respond(Expand(e))

	case "diff":
		e, err := getExpr("expr")
		if err != nil {
			return ToolResponse{Error: err.Error()}
		}
		v, err := getString("var")
		if err != nil {
			return ToolResponse{Error: err.Error()}
		}
		return respond(Derivative(e, v))

	case "integrate":
		e, err := getExpr("expr")
		if err != nil {
			return ToolResponse{Error: err.Error()}
		}
		v, err := getString("var")
		if err != nil {
			return ToolResponse{Error: err.Error()}
		}
		opts := DefaultOptions()
		if d, ok := req.Params["max_depth"].(float64); ok && int(d) > 0 {
			opts.MaxDepth = int(d)
		}
		if r, ok := req.Params["risch"].(bool); ok {
			opts.EnableRisch = r
		}
		var tr *Trace
		if want, ok := req.Params["trace"].(bool); ok && want {
			tr = &Trace{}
			opts.Trace = tr
		}
		res := IntegrateWithOptions(ctx, e, v, opts)
		resp := ToolResponse{
			Kind:      res.Kind.String(),
			Technique: res.Technique,
			Reason:    res.Reason,
		}
		if tr != nil {
			resp.Trace = tr.Steps
		}
		if res.Expr != nil {
			resp.Result = res.Expr.toJSON()
			resp.LaTeX = LaTeX(res.Expr)
			resp.String = String(res.Expr)
		}
		return resp

	case "substitute":
		e, err := getExpr("expr")
		if err != nil {
			return ToolResponse{Error: err.Error()}
		}
		v, err := getString("var")
		if err != nil {
			return ToolResponse{Error: err.Error()}
		}
		val, err := getExpr("value")
		if err != nil {
			return ToolResponse{Error: err.Error()}
		}
		return respond(e.Substitute(v, val).Simplify())

	case "eval":
		e, err := getExpr("expr")
		if err != nil {
			return ToolResponse{Error: err.Error()}
		}
		n, ok := Simplify(e).Eval()
		if !ok {
			return ToolResponse{Error: "expression does not evaluate to a number"}
		}
		return ToolResponse{
			Result: n.Float64(),
			String: n.String(),
			LaTeX:  n.LaTeX(),
		}

	case "to_latex":
		e, err := getExpr("expr")
		if err != nil {
			return ToolResponse{Error: err.Error()}
		}
		return ToolResponse{LaTeX: LaTeX(e), String: String(e)}

	case "free_symbols":
		e, err := getExpr("expr")
		if err != nil {
			return ToolResponse{Error: err.Error()}
		}
		syms := FreeSymbols(e)
		names := make([]string, 0, len(syms))
		for n := range syms {
			names = append(names, n)
		}
		sort.Strings(names)
		return ToolResponse{Result: names}

	case "mcp_spec":
		return ToolResponse{Result: json.RawMessage(MCPToolSpec())}
	}
	return ToolResponse{Error: "unknown tool: " + req.Tool}
}

// MCPToolSpec returns the JSON schema of every tool the handler accepts.
func MCPToolSpec() string {
	tools := []map[string]interface{}{
		ts("simplify", "Simplify a symbolic expression", []string{"expr"}, map[string]string{"expr": "object"}),
		ts("expand", "Algebraically expand expression", []string{"expr"}, map[string]string{"expr": "object"}),
		ts("diff", "First derivative d/dx", []string{"expr", "var"}, map[string]string{"expr": "object", "var": "string"}),
		ts("integrate", "Symbolic antiderivative. Optional: max_depth (int), risch (bool), trace (bool)", []string{"expr", "var"}, map[string]string{"expr": "object", "var": "string", "max_depth": "integer", "risch": "boolean", "trace": "boolean"}),
		ts("substitute", "Substitute var with value", []string{"expr", "var", "value"}, map[string]string{"expr": "object", "var": "string", "value": "object"}),
		ts("eval", "Evaluate a constant expression numerically", []string{"expr"}, map[string]string{"expr": "object"}),
		ts("to_latex", "Convert to LaTeX", []string{"expr"}, map[string]string{"expr": "object"}),
		ts("free_symbols", "Return free symbol names", []string{"expr"}, map[string]string{"expr": "object"}),
		ts("mcp_spec", "Return this tool schema", []string{}, map[string]string{}),
	}
	spec := map[string]interface{}{"tools": tools}
	b, _ := json.MarshalIndent(spec, "", "  ")
	return string(b)
}

func ts(name, description string, required []string, props map[string]string) map[string]interface{} {
	properties := map[string]interface{}{}
	for k, typ := range props {
		properties[k] = map[string]interface{}{"type": typ}
	}
	return map[string]interface{}{
		"name":        name,
		"description": description,
		"inputSchema": map[string]interface{}{
			"type":       "object",
			"properties": properties,
			"required":   required,
		},
	}
}
