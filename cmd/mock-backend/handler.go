package main

import (
	"encoding/json"
	"fmt"
	"net/http"
	"regexp"
	"strings"
)

const (
	weatherTool = "get_weather"
	mockCallID  = "call_mock_1"
	mockModel   = "mock-model"
)

// cityPattern picks the city out of prompts like "weather in Paris?".
var cityPattern = regexp.MustCompile(`\bin ([A-Z][A-Za-z .'-]*[A-Za-z])`)

// --- Request types ---

type chatRequest struct {
	Model    string        `json:"model"`
	Messages []chatMessage `json:"messages"`
	Tools    []chatTool    `json:"tools,omitempty"`
	Stream   bool          `json:"stream"`
}

type chatMessage struct {
	Role       string     `json:"role"`
	Content    *string    `json:"content"`
	ToolCalls  []toolCall `json:"tool_calls,omitempty"`
	ToolCallID string     `json:"tool_call_id,omitempty"`
}

type chatTool struct {
	Type     string `json:"type"`
	Function struct {
		Name string `json:"name"`
	} `json:"function"`
}

// --- Response types ---

type chatResponse struct {
	ID      string       `json:"id"`
	Object  string       `json:"object"`
	Model   string       `json:"model"`
	Choices []chatChoice `json:"choices"`
	Usage   chatUsage    `json:"usage"`
}

type chatChoice struct {
	Index        int         `json:"index"`
	Message      chatMessage `json:"message"`
	FinishReason string      `json:"finish_reason"`
}

type toolCall struct {
	Index    *int     `json:"index,omitempty"`
	ID       string   `json:"id,omitempty"`
	Type     string   `json:"type,omitempty"`
	Function funcCall `json:"function"`
}

type funcCall struct {
	Name      string `json:"name,omitempty"`
	Arguments string `json:"arguments"`
}

type chatUsage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// reply is what the mock decided to answer, independent of the wire mode.
type reply struct {
	text string
	call *toolCall
}

func (r reply) finishReason() string {
	if r.call != nil {
		return "tool_calls"
	}
	return "stop"
}

// --- Handler ---

func handleChatCompletions(w http.ResponseWriter, r *http.Request) {
	var req chatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, `{"error":{"message":"invalid request","type":"invalid_request_error"}}`, http.StatusBadRequest)
		return
	}
	if req.Model == "" {
		req.Model = mockModel
	}

	rep := decide(&req)
	if req.Stream {
		writeStream(w, &req, rep)
		return
	}

	msg := chatMessage{Role: "assistant"}
	if rep.call != nil {
		msg.ToolCalls = []toolCall{*rep.call}
	} else {
		msg.Content = &rep.text
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(chatResponse{
		ID:     "chatcmpl-mock",
		Object: "chat.completion",
		Model:  req.Model,
		Choices: []chatChoice{{
			Message:      msg,
			FinishReason: rep.finishReason(),
		}},
		Usage: usage(&req, rep),
	})
}

// decide picks the next turn: a get_weather call when the tool is offered
// and has not been answered yet, the tool output once it has, and a fixed
// greeting otherwise.
func decide(req *chatRequest) reply {
	if n := len(req.Messages); n > 0 && req.Messages[n-1].Role == "tool" {
		out := deref(req.Messages[n-1].Content)
		if strings.HasPrefix(out, "Error:") {
			return reply{text: "I could not get the weather: " + strings.TrimSpace(strings.TrimPrefix(out, "Error:"))}
		}
		return reply{text: "Here is the current weather: " + out}
	}

	for _, t := range req.Tools {
		if t.Function.Name == weatherTool {
			args, _ := json.Marshal(map[string]string{"city": cityFrom(lastUserMessage(req))})
			return reply{call: &toolCall{
				ID:       mockCallID,
				Type:     "function",
				Function: funcCall{Name: weatherTool, Arguments: string(args)},
			}}
		}
	}

	return reply{text: "Hello, nice day!"}
}

// --- Streaming ---

func writeStream(w http.ResponseWriter, req *chatRequest, rep reply) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming not supported", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	send := func(delta map[string]any, finish any, extra map[string]any) {
		chunk := map[string]any{
			"id":      "chatcmpl-mock-stream",
			"object":  "chat.completion.chunk",
			"model":   req.Model,
			"choices": []any{map[string]any{"index": 0, "delta": delta, "finish_reason": finish}},
		}
		for k, v := range extra {
			chunk[k] = v
		}
		data, _ := json.Marshal(chunk)
		fmt.Fprintf(w, "data: %s\n\n", data)
		flusher.Flush()
	}

	send(map[string]any{"role": "assistant"}, nil, nil)

	if rep.call != nil {
		// The name and id come first; the arguments follow in two fragments.
		idx := 0
		args := rep.call.Function.Arguments
		half := len(args) / 2
		send(map[string]any{"tool_calls": []toolCall{{
			Index: &idx, ID: rep.call.ID, Type: "function",
			Function: funcCall{Name: rep.call.Function.Name, Arguments: args[:half]},
		}}}, nil, nil)
		send(map[string]any{"tool_calls": []toolCall{{
			Index: &idx, Function: funcCall{Arguments: args[half:]},
		}}}, nil, nil)
	} else {
		for _, token := range strings.SplitAfter(rep.text, " ") {
			send(map[string]any{"content": token}, nil, nil)
		}
	}

	send(map[string]any{}, rep.finishReason(), map[string]any{"usage": usage(req, rep)})

	fmt.Fprint(w, "data: [DONE]\n\n")
	flusher.Flush()
}

// --- Models endpoint ---

func handleModels(w http.ResponseWriter, r *http.Request) {
	resp := map[string]any{
		"object": "list",
		"data": []map[string]any{
			{"id": mockModel, "object": "model", "owned_by": "tooldrive-mock"},
		},
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(resp)
}

// --- Helpers ---

// usage charges ten prompt tokens per message and one completion token
// per word of output.
func usage(req *chatRequest, rep reply) chatUsage {
	prompt := 10 * len(req.Messages)
	completion := len(strings.Fields(rep.text))
	if rep.call != nil {
		completion = 15
	}
	return chatUsage{PromptTokens: prompt, CompletionTokens: completion, TotalTokens: prompt + completion}
}

func lastUserMessage(req *chatRequest) string {
	for i := len(req.Messages) - 1; i >= 0; i-- {
		if req.Messages[i].Role == "user" {
			return deref(req.Messages[i].Content)
		}
	}
	return ""
}

func cityFrom(prompt string) string {
	if m := cityPattern.FindStringSubmatch(prompt); m != nil {
		return m[1]
	}
	return "Paris"
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
