package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/cloudwego/eino/adk"
	"github.com/cloudwego/eino/schema"
	"github.com/tbxark/estimagent/agent"
	"github.com/tbxark/estimagent/app"
	"github.com/tbxark/estimagent/config"
	"github.com/tbxark/estimagent/extract"
)

const sessionID = "cli"

func main() {
	conf := flag.String("config", "", "path to YAML config file")
	service := flag.String("service", "", "service to estimate (defaults to the configured default)")
	flag.Parse()
	cfg, err := config.Load(*conf)
	if err != nil {
		log.Fatalf("load config: %v", err)
	}
	if err := startApp(context.Background(), cfg, *service); err != nil {
		log.Fatalf("start app: %v", err)
	}
}

func startApp(ctx context.Context, cfg *config.Config, service string) error {
	logger := app.NewLogger(cfg.Env, os.Stderr)
	sessions, err := app.NewSessions(ctx, cfg, nil, logger)
	if err != nil {
		return err
	}
	estimator := agent.NewAgent(
		"Estimator",
		"An agent that collects project details and prices home-improvement work",
		service,
		sessions,
	)
	runner := adk.NewRunner(ctx, adk.RunnerConfig{Agent: estimator})
	ctx = agent.WithSessionID(ctx, sessionID)

	if err := printEvents(runner.Run(ctx, nil)); err != nil {
		return err
	}
	fmt.Println("Commands: /image <description>, /reset, /quit")

	reader := bufio.NewReader(os.Stdin)
	for {
		fmt.Print("You: ")
		input, rErr := reader.ReadString('\n')
		if rErr != nil {
			fmt.Println("Input closed. Bye.")
			return nil
		}
		input = strings.TrimSpace(input)
		switch {
		case input == "":
			continue
		case input == "/quit":
			return nil
		case input == "/reset":
			if err := sessions.Delete(ctx, sessionID); err != nil {
				return err
			}
			if err := printEvents(runner.Run(ctx, nil)); err != nil {
				return err
			}
		case strings.HasPrefix(input, "/image "):
			desc := strings.TrimSpace(strings.TrimPrefix(input, "/image "))
			turn, err := sessions.Image(ctx, sessionID, extract.ImageInput{Description: desc}, nil)
			if err != nil {
				return err
			}
			for _, msg := range turn.Replies {
				printReply(msg.Content)
			}
		default:
			if err := printEvents(runner.Run(ctx, []adk.Message{schema.UserMessage(input)})); err != nil {
				return err
			}
		}
	}
}

func printEvents(iter *adk.AsyncIterator[*adk.AgentEvent]) error {
	for {
		event, ok := iter.Next()
		if !ok {
			return nil
		}
		if event.Err != nil {
			return event.Err
		}
		msg, err := event.Output.MessageOutput.GetMessage()
		if err != nil {
			return err
		}
		printReply(msg.Content)
	}
}

func printReply(content string) {
	fmt.Printf("\nAssistant: %v\n======\n", content)
}
