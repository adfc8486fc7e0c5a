// Command chatsim runs the triage conversation in a terminal against the
// configured model providers, for trying prompts without the web stack.
package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/joho/godotenv"

	"github.com/wolfman30/careconnect/cmd/mainconfig"
	"github.com/wolfman30/careconnect/internal/app/bootstrap"
	appconfig "github.com/wolfman30/careconnect/internal/config"
	"github.com/wolfman30/careconnect/internal/conversation"
	"github.com/wolfman30/careconnect/pkg/logging"
)

// engine is the subset of conversation.Engine the loop drives.
type engine interface {
	StartSession(ctx context.Context) (*conversation.Turn, error)
	ProcessMessage(ctx context.Context, id, text string) (*conversation.Turn, error)
	ResetSession(ctx context.Context, id string) (*conversation.Turn, error)
	Undo(ctx context.Context, id string) (*conversation.State, error)
}

func main() {
	var (
		flagOffline bool
		flagVerbose bool
	)
	flag.BoolVar(&flagOffline, "offline", false, "Use canned replies only (no remote model)")
	flag.BoolVar(&flagVerbose, "v", false, "Log engine activity to stderr")
	flag.Parse()

	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	cfg := appconfig.Load()
	level := "error"
	if flagVerbose {
		level = "debug"
	}
	logger := logging.NewWithOptions(logging.Options{Level: level, Format: "text", Output: os.Stderr})

	ctx := context.Background()
	var llm conversation.LLMClient
	if !flagOffline {
		var awsCfg *aws.Config
		if cfg.BedrockModelID != "" {
			if loaded, err := mainconfig.LoadAWSConfig(ctx, cfg); err == nil {
				awsCfg = &loaded
			} else {
				log.Printf("aws config unavailable, bedrock disabled: %v", err)
			}
		}
		client, err := bootstrap.BuildLLMClient(ctx, cfg, awsCfg, nil, logger)
		if err != nil {
			log.Fatalf("build llm client: %v", err)
		}
		llm = client
	}

	source, err := bootstrap.BuildClinicSource(ctx, &appconfig.Config{ClinicSource: "static"}, nil, logger)
	if err != nil {
		log.Fatalf("clinic source: %v", err)
	}
	recommender := bootstrap.BuildRecommender(cfg, source, nil, nil, logger)
	eng := bootstrap.BuildEngine(cfg, conversation.NewMemoryStateStore(), llm, recommender, nil, nil, logger)

	if err := run(ctx, eng, os.Stdin, os.Stdout); err != nil {
		log.Fatal(err)
	}
}

// run reads patient lines from in until EOF or /quit. Lines starting with
// "/" are commands: /reset, /undo, /quit.
func run(ctx context.Context, eng engine, in io.Reader, out io.Writer) error {
	turn, err := eng.StartSession(ctx)
	if err != nil {
		return fmt.Errorf("start session: %w", err)
	}
	sessionID := turn.SessionID
	printTurn(out, turn)

	scanner := bufio.NewScanner(in)
	for {
		fmt.Fprint(out, "> ")
		if !scanner.Scan() {
			fmt.Fprintln(out)
			return scanner.Err()
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		switch line {
		case "/quit", "/exit":
			return nil
		case "/reset":
			turn, err := eng.ResetSession(ctx, sessionID)
			if err != nil {
				return fmt.Errorf("reset: %w", err)
			}
			printTurn(out, turn)
			continue
		case "/undo":
			state, err := eng.Undo(ctx, sessionID)
			if errors.Is(err, conversation.ErrNothingToUndo) {
				fmt.Fprintln(out, "(nothing to undo)")
				continue
			}
			if err != nil {
				return fmt.Errorf("undo: %w", err)
			}
			fmt.Fprintf(out, "(undone, stage %s)\n", state.Stage)
			continue
		}

		start := time.Now()
		turn, err := eng.ProcessMessage(ctx, sessionID, line)
		if err != nil {
			if errors.Is(err, conversation.ErrMessageTooLong) {
				fmt.Fprintln(out, "(message too long)")
				continue
			}
			return fmt.Errorf("process message: %w", err)
		}
		printTurn(out, turn)
		fmt.Fprintf(out, "    [%s via %s in %v]\n", turn.Stage, turn.Source, time.Since(start).Round(time.Millisecond))
	}
}

func printTurn(out io.Writer, turn *conversation.Turn) {
	fmt.Fprintf(out, "CareConnect: %s\n", turn.Reply.Text)
	for i, rec := range turn.Recommendations {
		fmt.Fprintf(out, "    %d. %s (%.1f) %s\n", i+1, rec.Name, rec.Rating, rec.City)
	}
}
