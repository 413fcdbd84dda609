// Interactive dialogue client for local testing: types stand in for
// speech, every server event is printed as it arrives.
package main

import (
	"bufio"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/fatih/color"
	"github.com/gorilla/websocket"
)

var serverURL = flag.String("url", "ws://localhost:8080/v1/session", "Dialogue session endpoint")

type event struct {
	Type       string `json:"type"`
	Role       string `json:"role"`
	Text       string `json:"text"`
	IsFinal    bool   `json:"isFinal"`
	Status     string `json:"status"`
	StatusType string `json:"status_type"`
	Reason     string `json:"reason"`
}

// detectLanguage labels Devanagari input as Hindi so typed text carries the
// same language field real speech transcription would.
func detectLanguage(text string) string {
	for _, r := range text {
		if r >= 0x0900 && r <= 0x097F {
			return "hi"
		}
	}
	return "en"
}

func main() {
	flag.Parse()

	conn, _, err := websocket.DefaultDialer.Dial(*serverURL, nil)
	if err != nil {
		log.Fatalf("failed to connect: %v", err)
	}
	defer conn.Close()

	boldGreen := color.New(color.FgGreen, color.Bold).SprintFunc()
	boldCyan := color.New(color.FgCyan, color.Bold).SprintFunc()
	yellow := color.New(color.FgYellow).SprintFunc()
	red := color.New(color.FgRed, color.Bold).SprintFunc()

	fmt.Println(boldGreen("⚡ EV FAQ Dialogue Client"))
	fmt.Printf("Connected to %s\n", *serverURL)
	fmt.Println("Type a message and press Enter. Prefix with '/p ' to send a partial. Type 'exit' to quit.")
	fmt.Println()

	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			messageType, data, err := conn.ReadMessage()
			if err != nil {
				return
			}
			if messageType == websocket.BinaryMessage {
				fmt.Printf("%s %d bytes\n", yellow("[audio]"), len(data))
				continue
			}

			var ev event
			if err := json.Unmarshal(data, &ev); err != nil {
				continue
			}
			switch ev.Type {
			case "transcription":
				if !ev.IsFinal {
					fmt.Printf("%s %s\n", yellow("…"), ev.Text)
					continue
				}
				speaker := boldGreen("You: ")
				if ev.Role == "assistant" {
					speaker = boldCyan("Assistant: ")
				}
				fmt.Printf("%s%s\n", speaker, ev.Text)
			case "status_update":
				fmt.Printf("%s %s\n", yellow("[status]"), ev.Status)
			case "transfer_request":
				fmt.Printf("%s %s\n", red("[transfer]"), ev.Reason)
			case "session_closed":
				fmt.Printf("%s reason=%s\n", red("[closed]"), ev.Reason)
				return
			}
		}
	}()

	// Ctrl+C sends a clean close so the server records a client
	// disconnect rather than a transport error.
	interrupt := make(chan os.Signal, 1)
	signal.Notify(interrupt, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-interrupt
		_ = conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
			time.Now().Add(time.Second))
		os.Exit(0)
	}()

	scanner := bufio.NewScanner(os.Stdin)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if strings.ToLower(line) == "exit" {
			break
		}

		isFinal := true
		if strings.HasPrefix(line, "/p ") {
			line = strings.TrimPrefix(line, "/p ")
			isFinal = false
		}

		msg := map[string]any{
			"type":     "transcription",
			"role":     "user",
			"text":     line,
			"isFinal":  isFinal,
			"language": detectLanguage(line),
		}
		if err := conn.WriteJSON(msg); err != nil {
			log.Fatalf("failed to send: %v", err)
		}
	}

	_ = conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		time.Now().Add(time.Second))
	select {
	case <-done:
	case <-time.After(2 * time.Second):
	}
}
