package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"voice-resume-backend/internal/llm"
	"voice-resume-backend/internal/llm/gemini"
	openai "voice-resume-backend/internal/llm/openai"
	"voice-resume-backend/internal/sections"
	"voice-resume-backend/internal/shared/config"
)

func main() {
	cfg := config.Load()

	section := flag.String("section", "", "section to parse: "+strings.Join(sections.Names(), ", "))
	textPath := flag.String("text", "", "file holding the spoken answer; - reads stdin")
	promptsFile := flag.String("prompts", cfg.PromptsFile, "YAML prompt overrides (optional)")
	outPath := flag.String("out", "", "path to write the parsed JSON (optional)")
	provider := flag.String("provider", cfg.LLMProvider, "LLM provider: gemini or openai")
	model := flag.String("model", cfg.LLMModel, "LLM model")
	flag.Parse()

	if strings.TrimSpace(*section) == "" {
		exitErr("section is required")
	}
	if strings.TrimSpace(*textPath) == "" {
		exitErr("text path is required")
	}

	answer, err := readAnswer(*textPath)
	if err != nil {
		exitErr(fmt.Sprintf("read answer: %v", err))
	}

	prompts, err := sections.LoadPrompts(*promptsFile)
	if err != nil {
		exitErr(err.Error())
	}
	if _, ok := prompts.Template(*section); !ok {
		exitErr(fmt.Sprintf("unsupported section: %s", *section))
	}

	ctx := context.Background()
	timeout := time.Duration(cfg.LLMTimeoutSeconds) * time.Second
	gen, err := buildGenerator(ctx, cfg, *provider, *model, timeout)
	if err != nil {
		exitErr(err.Error())
	}

	value := sections.NewExtractor(gen, prompts).ParseSection(ctx, *section, answer)
	if err := sections.CheckShape(strings.ToLower(strings.TrimSpace(*section)), value); err != nil {
		fmt.Fprintf(os.Stderr, "warning: %v\n", err)
	}

	pretty, err := json.MarshalIndent(value, "", "  ")
	if err != nil {
		exitErr(fmt.Sprintf("format json: %v", err))
	}
	pretty = append(pretty, '\n')

	if *outPath != "" {
		if err := os.WriteFile(*outPath, pretty, 0o644); err != nil {
			exitErr(fmt.Sprintf("write output: %v", err))
		}
	}
	if _, err := os.Stdout.Write(pretty); err != nil {
		exitErr(fmt.Sprintf("write stdout: %v", err))
	}
}

func buildGenerator(ctx context.Context, cfg config.Config, provider, model string, timeout time.Duration) (llm.Generator, error) {
	switch strings.ToLower(strings.TrimSpace(provider)) {
	case "openai":
		return openai.NewClient(cfg.OpenAIAPIKey, model, timeout)
	case "", "gemini":
		return gemini.New(ctx, cfg.GeminiAPIKey, model, timeout)
	default:
		return nil, fmt.Errorf("unsupported provider: %s", provider)
	}
}

func readAnswer(path string) (string, error) {
	var (
		raw []byte
		err error
	)
	if path == "-" {
		raw, err = io.ReadAll(os.Stdin)
	} else {
		raw, err = os.ReadFile(path)
	}
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(raw)), nil
}

func exitErr(msg string) {
	_, _ = fmt.Fprintln(os.Stderr, msg)
	os.Exit(1)
}
