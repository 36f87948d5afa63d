package main

import (
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/fatih/color"
)

// Walks a seeded account through sign-in, chat creation, one question and
// clean-up against a running server. Run cmd/seed first.

type envelope struct {
	Success   bool            `json:"success"`
	Message   string          `json:"message"`
	ErrorCode string          `json:"error_code"`
	Data      json.RawMessage `json:"data"`
}

var (
	baseURL  = flag.String("url", "http://localhost:3000/api", "API base URL")
	email    = flag.String("email", "patient@medimate.local", "account email or username")
	password = flag.String("password", "medimate123", "account password")
	question = flag.String("question", "What helps with a mild headache?", "question to send")
)

var client = &http.Client{Timeout: 2 * time.Minute}

func prettyPrint(raw json.RawMessage) {
	var v interface{}
	if err := json.Unmarshal(raw, &v); err != nil {
		fmt.Println(string(raw))
		return
	}
	b, _ := json.MarshalIndent(v, "", "  ")
	fmt.Println(string(b))
}

func sendRequest(method, path, token string, body interface{}) (*envelope, error) {
	var bodyReader io.Reader
	if body != nil {
		jsonBody, err := json.Marshal(body)
		if err != nil {
			return nil, err
		}
		bodyReader = bytes.NewBuffer(jsonBody)
	}

	req, err := http.NewRequest(method, *baseURL+path, bodyReader)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var env envelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		return nil, fmt.Errorf("%s: decode body: %w", resp.Status, err)
	}
	if !env.Success {
		return &env, fmt.Errorf("%s: %s (%s)", resp.Status, env.Message, env.ErrorCode)
	}
	color.Green("Status: %s", resp.Status)
	return &env, nil
}

func must(env *envelope, err error) *envelope {
	if err != nil {
		color.Red("Failed: %v", err)
		os.Exit(1)
	}
	return env
}

func main() {
	flag.Parse()
	color.Cyan("Starting MediMate API smoke test\n")

	color.Yellow("\n1. Sign in")
	env := must(sendRequest("POST", "/auth/sign-in", "", map[string]string{"email": *email, "password": *password}))
	var auth struct {
		AccessToken string `json:"access_token"`
		Session     struct {
			Status string `json:"status"`
		} `json:"session"`
	}
	_ = json.Unmarshal(env.Data, &auth)
	fmt.Printf("Session: %s\n", auth.Session.Status)
	token := auth.AccessToken

	color.Yellow("\n2. Session gate for the chat view")
	prettyPrint(must(sendRequest("GET", "/auth/session?view=chat", token, nil)).Data)

	color.Yellow("\n3. Create chat")
	env = must(sendRequest("POST", "/chats", token, nil))
	var chat struct {
		Id string `json:"id"`
	}
	_ = json.Unmarshal(env.Data, &chat)
	fmt.Printf("Created chat: %s\n", chat.Id)

	color.Yellow("\n4. Ask a question")
	env, err := sendRequest("POST", "/chats/"+chat.Id+"/messages", token, map[string]string{"content": *question})
	if err != nil {
		color.Red("Failed: %v", err)
	} else {
		prettyPrint(env.Data)
	}

	color.Yellow("\n5. Chat list")
	prettyPrint(must(sendRequest("GET", "/chats", token, nil)).Data)

	color.Yellow("\n6. Cleanup: delete chat")
	prettyPrint(must(sendRequest("DELETE", "/chats/"+chat.Id+"?open="+chat.Id, token, nil)).Data)

	color.Cyan("\nSmoke test complete")
}
