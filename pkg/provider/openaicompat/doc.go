// Package openaicompat implements the backend adapter for any
// OpenAI-compatible Chat Completions server (OpenAI, vLLM, LiteLLM,
// llama.cpp, Ollama's compatibility endpoint). It handles request
// serialization, response parsing, SSE chunk streaming, tool call argument
// buffering, and error mapping.
package openaicompat
