package main

import (
	"bufio"
	"context"
	"crypto/tls"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"

	"github.com/voicereach/voicereach/internal/agent"
	"github.com/voicereach/voicereach/internal/calls"
	appconfig "github.com/voicereach/voicereach/internal/config"
	"github.com/voicereach/voicereach/internal/dispatch"
	"github.com/voicereach/voicereach/internal/notify"
	"github.com/voicereach/voicereach/pkg/logging"
)

// consoleTransport runs the conversation over stdin/stdout: each line typed
// is the lead's utterance, each agent reply is printed.
type consoleTransport struct {
	in  *bufio.Scanner
	out io.Writer
}

func newConsoleTransport() *consoleTransport {
	return &consoleTransport{in: bufio.NewScanner(os.Stdin), out: os.Stdout}
}

func (t *consoleTransport) ReadLine(_ context.Context) (string, error) {
	if !t.in.Scan() {
		if err := t.in.Err(); err != nil {
			return "", err
		}
		return "", io.EOF
	}
	return t.in.Text(), nil
}

func (t *consoleTransport) WriteLine(_ context.Context, text string) error {
	_, err := fmt.Fprintf(t.out, "agent> %s\n", text)
	return err
}

func loadContext(path string) (*calls.ContextInstance, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var inst calls.ContextInstance
	if err := json.Unmarshal(data, &inst); err != nil {
		return nil, fmt.Errorf("parse context file: %w", err)
	}
	if inst.ID == "" {
		return nil, fmt.Errorf("context file missing id")
	}
	return &inst, nil
}

func main() {
	contextPath := flag.String("context", "", "path to a call context JSON file")
	flag.Parse()

	_ = godotenv.Load()
	cfg := appconfig.Load()
	logger := logging.New(cfg.LogLevel)

	if *contextPath == "" {
		logger.Error("missing required -context flag")
		os.Exit(1)
	}
	inst, err := loadContext(*contextPath)
	if err != nil {
		logger.Error("failed to load call context", "path", *contextPath, "error", err)
		os.Exit(1)
	}

	var sessionStore *agent.SessionStore
	if cfg.RedisAddr != "" {
		redisOptions := &redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
		}
		if cfg.RedisTLS {
			redisOptions.TLSConfig = &tls.Config{MinVersion: tls.VersionTLS12}
		}
		client := redis.NewClient(redisOptions)
		if err := client.Ping(context.Background()).Err(); err != nil {
			logger.Warn("redis not available, running without session persistence", "error", err)
		} else {
			sessionStore = agent.NewSessionStore(client)
		}
	}

	var dialer agent.Dialer
	if cfg.DemoMode {
		logger.Info("demo mode: skipping outbound dial")
	} else {
		dialer = dispatch.NewSIPDialer(dispatch.Config{
			URL:              cfg.PlatformURL,
			APIKey:           cfg.PlatformAPIKey,
			APISecret:        cfg.PlatformAPISecret,
			SIPOutboundTrunk: cfg.SIPOutboundTrunk,
			AgentName:        cfg.AgentName,
		}, logger)
	}

	var emailSender notify.EmailSender
	if cfg.SendGridAPIKey != "" && cfg.SendGridFromEmail != "" {
		emailSender = notify.NewSendGridSender(notify.SendGridConfig{
			APIKey:    cfg.SendGridAPIKey,
			FromEmail: cfg.SendGridFromEmail,
			FromName:  cfg.SendGridFromName,
		}, logger)
	} else {
		emailSender = notify.NewStubEmailSender(logger)
		logger.Warn("post-call emails disabled (SENDGRID_API_KEY or SENDGRID_FROM_EMAIL not set)")
	}
	reports := notify.NewReportService(emailSender, logger)

	session, err := agent.NewSession(agent.SessionConfig{
		Context:   inst,
		Responder: agent.NewScriptedResponder(),
		Transport: newConsoleTransport(),
		Dialer:    dialer,
		Store:     sessionStore,
		OnShutdown: func(ctx context.Context, result *agent.CallResult) {
			report := reports.SendPostCallEmails(ctx, inst, result)
			result.LeadEmailSent = report.LeadEmailSent
			logger.Info("call finished",
				"outcome", result.Outcome,
				"duration_s", result.DurationSeconds,
				"owner_email_sent", report.OwnerEmailSent,
				"lead_email_sent", report.LeadEmailSent,
			)
		},
		Logger: logger,
	})
	if err != nil {
		logger.Error("failed to create session", "error", err)
		os.Exit(1)
	}

	result, err := session.Run(context.Background())
	if err != nil {
		logger.Error("session aborted", "error", err)
		os.Exit(1)
	}

	out, _ := json.MarshalIndent(result, "", "  ")
	fmt.Println(string(out))
}
