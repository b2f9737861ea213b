package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"chatrooms/backend/internal/models"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

type adminConfig struct {
	APIURL  string        `envconfig:"CHAT_API_URL" default:"http://localhost:8080"`
	Timeout time.Duration `envconfig:"CHAT_API_TIMEOUT" default:"5s"`
}

type apiClient struct {
	base string
	http *http.Client
}

func main() {
	_ = godotenv.Load()

	var cfg adminConfig
	if err := envconfig.Process("", &cfg); err != nil {
		log.Fatalf("config error: %v", err)
	}
	api := &apiClient{base: strings.TrimRight(cfg.APIURL, "/"), http: &http.Client{Timeout: cfg.Timeout}}

	if len(os.Args) < 2 {
		usage()
		os.Exit(1)
	}

	command := os.Args[1]

	switch command {
	case "conversations":
		var convs []models.Conversation
		if err := api.do(http.MethodGet, "/chat/conversations", nil, &convs); err != nil {
			log.Fatalf("Error listing conversations: %v", err)
		}
		for _, c := range convs {
			fmt.Printf("%s\t%s\t%s\n", c.ID, c.Name, strings.Join(c.Participants, ","))
		}
	case "create":
		if len(os.Args) < 3 {
			fmt.Println("Usage: admin create <name> [participant...]")
			os.Exit(1)
		}
		body := map[string]any{"name": os.Args[2], "participants": os.Args[3:]}
		var conv models.Conversation
		if err := api.do(http.MethodPost, "/chat/conversations", body, &conv); err != nil {
			log.Fatalf("Error creating conversation: %v", err)
		}
		fmt.Printf("Conversation %s created.\n", conv.ID)
	case "messages":
		if len(os.Args) < 3 {
			fmt.Println("Usage: admin messages <conversation_id> [limit]")
			os.Exit(1)
		}
		path := "/chat/conversations/" + os.Args[2] + "/messages"
		if len(os.Args) > 3 {
			if _, err := strconv.Atoi(os.Args[3]); err != nil {
				fmt.Println("Invalid limit. Please provide an integer.")
				os.Exit(1)
			}
			path += "?limit=" + os.Args[3]
		}
		var msgs []models.Message
		if err := api.do(http.MethodGet, path, nil, &msgs); err != nil {
			log.Fatalf("Error listing messages: %v", err)
		}
		for _, m := range msgs {
			fmt.Printf("[%s] %s: %s\n", m.Timestamp.Format(time.RFC3339), m.Sender, m.Content)
		}
	case "send":
		if len(os.Args) < 5 {
			fmt.Println("Usage: admin send <conversation_id> <sender> <content>")
			os.Exit(1)
		}
		body := map[string]string{
			"conversationId": os.Args[2],
			"sender":         os.Args[3],
			"content":        strings.Join(os.Args[4:], " "),
		}
		var msg models.Message
		if err := api.do(http.MethodPost, "/chat/messages", body, &msg); err != nil {
			log.Fatalf("Error sending message: %v", err)
		}
		fmt.Printf("Message %s stored.\n", msg.ID)
	case "online":
		var users []string
		if err := api.do(http.MethodGet, "/chat/users/online", nil, &users); err != nil {
			log.Fatalf("Error listing online users: %v", err)
		}
		for _, u := range users {
			fmt.Println(u)
		}
	default:
		fmt.Println("Unknown command")
		usage()
		os.Exit(1)
	}
}

func usage() {
	fmt.Println("Usage: admin <command> [args]")
	fmt.Println("Commands: conversations, create, messages, send, online")
}

func (c *apiClient) do(method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequest(method, c.base+path, reader)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		var apiErr struct {
			Error string `json:"error"`
		}
		_ = json.NewDecoder(resp.Body).Decode(&apiErr)
		return fmt.Errorf("%s %s: %s %s", method, path, resp.Status, apiErr.Error)
	}
	return json.NewDecoder(resp.Body).Decode(out)
}
