package main

import (
	"bufio"
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/fatih/color"
)

type turnRequest struct {
	SessionId string `json:"session_id,omitempty"`
	Message   string `json:"message"`
}

type turnResponse struct {
	Message string `json:"message"`
	Data    struct {
		SessionId  string   `json:"session_id"`
		Text       string   `json:"text"`
		Mode       string   `json:"mode"`
		StageIndex int      `json:"stage_index"`
		Options    []string `json:"options"`
		Source     string   `json:"source"`
		Completed  bool     `json:"completed"`
	} `json:"data"`
}

var (
	bot    = color.New(color.FgCyan)
	meta   = color.New(color.FgHiBlack)
	prompt = color.New(color.FgGreen, color.Bold)
	fail   = color.New(color.FgRed)
)

func main() {
	baseURL := flag.String("url", "http://localhost:3000/api/dialogue/v1", "dialogue API base URL")
	sessionID := flag.String("session", "", "resume an existing session")
	script := flag.String("script", "", "file with one message per line; interactive when empty")
	flag.Parse()

	client := &http.Client{Timeout: 60 * time.Second}
	fmt.Println("=== Nôa dialogue console ===")
	meta.Println("Type a message, or /quit to leave.")

	input := os.Stdin
	if *script != "" {
		f, err := os.Open(*script)
		if err != nil {
			fail.Printf("Failed to open script: %v\n", err)
			os.Exit(1)
		}
		defer f.Close()
		input = f
	}

	scanner := bufio.NewScanner(input)
	for {
		prompt.Print("você> ")
		if !scanner.Scan() {
			fmt.Println()
			return
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "/quit" {
			return
		}
		if *script != "" {
			fmt.Println(line)
		}

		res, err := send(client, *baseURL, turnRequest{SessionId: *sessionID, Message: line})
		if err != nil {
			fail.Printf("error: %v\n", err)
			continue
		}
		*sessionID = res.Data.SessionId

		bot.Printf("nôa> %s\n", res.Data.Text)
		for i, opt := range res.Data.Options {
			bot.Printf("     %d) %s\n", i+1, opt)
		}
		meta.Printf("     [mode=%s stage=%d source=%s session=%s]\n",
			res.Data.Mode, res.Data.StageIndex, res.Data.Source, res.Data.SessionId)
		if res.Data.Completed {
			color.New(color.FgYellow).Println("     interview completed")
		}
	}
}

func send(client *http.Client, baseURL string, req turnRequest) (*turnResponse, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, err
	}

	resp, err := client.Post(baseURL+"/turn", "application/json", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("status %d: %s", resp.StatusCode, raw)
	}

	var out turnResponse
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, err
	}
	return &out, nil
}
