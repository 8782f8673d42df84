package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/cuongbtq/job-title-predictor/internal/blobstore"
	"github.com/cuongbtq/job-title-predictor/internal/bootstrap"
	"github.com/cuongbtq/job-title-predictor/internal/config"
	"github.com/cuongbtq/job-title-predictor/internal/prediction"
	"github.com/cuongbtq/job-title-predictor/internal/render"
	"github.com/joho/godotenv"
)

// exit codes
const (
	exitOK         = 0
	exitUsage      = 1
	exitSubmission = 2
	exitTimeout    = 3
	exitMalformed  = 4
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdin, os.Stdout, os.Stderr))
}

func run(args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables or flags")
	}

	defaultConfigPath := os.Getenv("PREDICT_CONFIG_PATH")
	if defaultConfigPath == "" {
		defaultConfigPath = "configs/predict/config.yaml"
	}

	flags := flag.NewFlagSet("predict", flag.ContinueOnError)
	flags.SetOutput(stderr)
	configPath := flags.String("config", defaultConfigPath, "Path to configuration file")
	description := flags.String("description", prediction.DefaultDescription, "Job description to classify")
	descriptionFile := flags.String("description-file", "", "Read the job description from a file, - for stdin")
	credentialsFile := flags.String("set-credentials", "", "Store a service account JSON key in the OS keyring and exit")
	if err := flags.Parse(args); err != nil {
		return exitUsage
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(stderr, "failed to load config: %v\n", err)
		return exitUsage
	}

	if *credentialsFile != "" {
		if err := storeCredentials(&cfg.Storage.Credentials, *credentialsFile); err != nil {
			fmt.Fprintln(stderr, err)
			return exitUsage
		}
		fmt.Fprintf(stdout, "Credentials stored in keyring %s/%s\n",
			cfg.Storage.Credentials.KeyringService, cfg.Storage.Credentials.KeyringAccount)
		return exitOK
	}

	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(stderr, "invalid config: %v\n", err)
		return exitUsage
	}

	text, err := readDescription(*description, *descriptionFile, stdin)
	if err != nil {
		fmt.Fprintln(stderr, err)
		return exitUsage
	}

	appLogger, err := bootstrap.NewLogger(cfg, time.TimeOnly)
	if err != nil {
		fmt.Fprintf(stderr, "failed to initialize logger: %v\n", err)
		return exitUsage
	}
	defer appLogger.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pipeline, err := bootstrap.NewPipeline(ctx, cfg, appLogger.Logger)
	if err != nil {
		fmt.Fprintf(stderr, "failed to initialize prediction pipeline: %v\n", err)
		return exitUsage
	}
	defer pipeline.Close()

	job, err := pipeline.Dispatcher.Submit(ctx, text)
	if err != nil {
		return report(stderr, err)
	}

	jobLogger := appLogger.ForJob(job.ID)
	jobLogger.Info("Job submitted, waiting for result",
		slog.Duration("budget", cfg.Polling.Budget()),
	)

	result, err := pipeline.Dispatcher.AwaitResult(ctx, job, cfg.Polling.MaxAttempts, cfg.Polling.Interval)
	if err != nil {
		return report(stderr, err)
	}

	jobLogger.Debug("Result rendered",
		slog.String("predicted_title", result.PredictedTitle),
	)

	fmt.Fprint(stdout, render.Markdown(result))
	return exitOK
}

// report prints a user-facing message for err and returns the exit code
func report(w io.Writer, err error) int {
	message, code := describeFailure(err)
	fmt.Fprintln(w, message)
	return code
}

func describeFailure(err error) (string, int) {
	var subErr *prediction.SubmissionError
	var timeoutErr *prediction.TimeoutError
	var malformedErr *prediction.MalformedResultError

	switch {
	case errors.As(err, &subErr):
		return "Error submitting job.\n" + subErr.Diagnostic, exitSubmission
	case errors.As(err, &timeoutErr):
		return "Result not received in time.", exitTimeout
	case errors.As(err, &malformedErr):
		return "Prediction result is malformed: " + malformedErr.Reason, exitMalformed
	case errors.Is(err, context.Canceled):
		return "Interrupted.", exitUsage
	default:
		return err.Error(), exitUsage
	}
}

func readDescription(flagValue, file string, stdin io.Reader) (string, error) {
	text := flagValue
	if file != "" {
		var data []byte
		var err error
		if file == "-" {
			data, err = io.ReadAll(stdin)
		} else {
			data, err = os.ReadFile(file)
		}
		if err != nil {
			return "", fmt.Errorf("failed to read description: %w", err)
		}
		text = string(data)
	}

	if strings.TrimSpace(text) == "" {
		return "", errors.New("description must not be blank")
	}
	return text, nil
}

func storeCredentials(cfg *config.CredentialsConfig, file string) error {
	data, err := os.ReadFile(file)
	if err != nil {
		return fmt.Errorf("failed to read credentials file: %w", err)
	}

	return blobstore.StoreCredentials(&blobstore.CredentialsConfig{
		KeyringService: cfg.KeyringService,
		KeyringAccount: cfg.KeyringAccount,
	}, data)
}
