// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package ollama provides the HTTP client for communicating with Ollama API.
//
// This package implements the small part of the Ollama API the chat client
// needs: streaming generation, the version probe, the local model listing
// and model pulls.
//
// # Key Types
//
//   - Client: HTTP client for Ollama API communication
//   - GenerateRequest: Request structure for /api/generate
//   - GenerateResponse: One token object of a generation stream
//   - GenerateStream: NDJSON reader yielding chunks of tokens
//   - ClientError: Typed error with IsXxx helpers
//
// # Usage
//
//	client := ollama.NewClientWithConfig(&ollama.ClientConfig{Host: "127.0.0.1", Port: 11434})
//	stream, err := client.GenerateStream(ctx, ollama.GenerateRequest{
//	    Model:  "llama3.2",
//	    Prompt: "Hello",
//	})
//	if err != nil {
//	    return err
//	}
//	defer stream.Close()
//	for {
//	    chunk, err := stream.Next()
//	    if err == io.EOF {
//	        break
//	    }
//	    for _, token := range chunk {
//	        fmt.Print(token.Response)
//	    }
//	}
package ollama
