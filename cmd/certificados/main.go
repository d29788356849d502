// Command certificados diagnoses and repairs inconsistent links between
// certificados, proyectos and clientes.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"time"

	"go.uber.org/zap"

	certificadoapp "github.com/sgi/backend/internal/application/certificado"
	"github.com/sgi/backend/internal/domain/certificado"
	"github.com/sgi/backend/internal/infrastructure/config"
	"github.com/sgi/backend/internal/infrastructure/logger"
	"github.com/sgi/backend/internal/infrastructure/persistence"
)

func main() {
	var (
		dryRun   bool
		asJSON   bool
		logLevel string
		timeout  time.Duration
	)

	flag.BoolVar(&dryRun, "dry-run", false, "Report what fix would change without writing")
	flag.BoolVar(&asJSON, "json", false, "Print the report as JSON")
	flag.StringVar(&logLevel, "log-level", "info", "Log level (debug, info, warn, error)")
	flag.DurationVar(&timeout, "timeout", 5*time.Minute, "Abort after this long")
	flag.Parse()

	args := flag.Args()
	if len(args) == 0 {
		printUsage()
		os.Exit(1)
	}
	command := args[0]
	if command != "diagnose" && command != "fix" {
		printUsage()
		os.Exit(1)
	}

	log, err := logger.New(&logger.Config{
		Level:      logLevel,
		Format:     "console",
		Output:     "stderr",
		TimeFormat: "2006-01-02 15:04:05",
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer func() {
		_ = logger.Sync(log)
	}()

	cfg, err := config.Load()
	if err != nil {
		log.Fatal("Failed to load configuration", zap.Error(err))
	}

	gormLog := logger.NewGormLogger(log, logger.MapGormLogLevel(logLevel), logger.WithIgnoreRecordNotFoundError(true))
	db, err := persistence.NewDatabase(&cfg.Database, persistence.WithLogger(gormLog))
	if err != nil {
		log.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer db.Close()

	repo := persistence.NewGormCertificadoRepository(db.DB)
	svc := certificadoapp.NewService(repo, persistence.NewGormProyectoRepository(db.DB), repo, log)

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	exitCode := 0
	switch command {
	case "diagnose":
		report, err := svc.Diagnose(ctx)
		if err != nil {
			log.Fatal("Diagnosis failed", zap.Error(err))
		}
		emit(asJSON, report, func() { printReport(report) })
		if !report.Healthy() {
			exitCode = 2
		}

	case "fix":
		result, err := svc.Fix(ctx, dryRun)
		if err != nil {
			log.Fatal("Fix failed", zap.Error(err))
		}
		emit(asJSON, result, func() {
			printReport(result.Report)
			if result.DryRun {
				fmt.Printf("\n%d certificado(s) would be realigned (dry run)\n", result.Fixable)
			} else {
				fmt.Printf("\n%d certificado(s) realigned\n", result.Fixed)
			}
		})
		log.Info("Certificado fix finished",
			zap.Bool("dry_run", result.DryRun),
			zap.Int("fixable", result.Fixable),
			zap.Int64("fixed", result.Fixed),
		)
	}

	if exitCode != 0 {
		_ = logger.Sync(log)
		os.Exit(exitCode)
	}
}

func emit(asJSON bool, v any, text func()) {
	if !asJSON {
		text()
		return
	}
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	_ = enc.Encode(v)
}

func printReport(r *certificado.Report) {
	fmt.Printf("Certificados inspected: %d\n", r.Total)
	if r.Healthy() {
		fmt.Println("No inconsistencies found")
		return
	}

	for _, kind := range []certificado.IssueKind{
		certificado.IssueMissingCliente,
		certificado.IssueClienteMismatch,
		certificado.IssueOrphanProyecto,
	} {
		if n := r.Count(kind); n > 0 {
			fmt.Printf("  %-22s %d\n", kind, n)
		}
	}
	for _, i := range r.Issues {
		fmt.Printf("    certificado=%d proyecto=%d cliente=%s expected=%s fixable=%t\n",
			i.CertificadoID, i.ProyectoID, idOrDash(i.ClienteID), idOrDash(i.ExpectedClienteID), i.Fixable())
	}

	if len(r.OverCertified) > 0 {
		fmt.Println("Proyectos certified over 100%:")
		for _, o := range r.OverCertified {
			fmt.Printf("    %s (id=%d) %s%%\n", o.Code, o.ProyectoID, o.Percent.StringFixed(2))
		}
	}
}

func idOrDash(id *int64) string {
	if id == nil {
		return "-"
	}
	return fmt.Sprintf("%d", *id)
}

func printUsage() {
	fmt.Println(`SGI Certificado Maintenance Tool

Usage:
  certificados [flags] <command>

Commands:
  diagnose              List certificados whose cliente or proyecto links are inconsistent
                        (exit status 2 when problems are found)
  fix                   Realign cliente_id with the proyecto's cliente

Flags:
  -dry-run              With fix: report the changes without writing them
  -json                 Print the report as JSON
  -log-level string     Log level: debug, info, warn, error (default: info)
  -timeout duration     Abort after this long (default: 5m)

Examples:
  certificados diagnose
  certificados -dry-run fix
  certificados -json fix`)
}
