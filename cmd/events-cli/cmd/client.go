package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/coder/websocket"
)

// dial opens a websocket connection to the configured server.
func dial(ctx context.Context) (*websocket.Conn, error) {
	dialCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	conn, _, err := websocket.Dial(dialCtx, serverURL, nil)
	if err != nil {
		return nil, fmt.Errorf("dialing %s: %w", serverURL, err)
	}
	return conn, nil
}

// request sends one JSON frame and returns the next frame from the server.
func request(ctx context.Context, conn *websocket.Conn, payload any) ([]byte, error) {
	frame, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	if err := conn.Write(ctx, websocket.MessageText, frame); err != nil {
		return nil, fmt.Errorf("writing request: %w", err)
	}

	_, resp, err := conn.Read(ctx)
	if err != nil {
		return nil, fmt.Errorf("reading response: %w", err)
	}
	return resp, nil
}

// printJSON pretty-prints a JSON frame to stdout.
func printJSON(frame []byte) {
	var buf map[string]any
	if err := json.Unmarshal(frame, &buf); err != nil {
		fmt.Println(string(frame))
		return
	}
	pretty, err := json.MarshalIndent(buf, "", "  ")
	if err != nil {
		fmt.Println(string(frame))
		return
	}
	fmt.Println(string(pretty))
}
