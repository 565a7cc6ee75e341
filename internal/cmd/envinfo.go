package cmd

import (
	"fmt"
	"runtime"
	"strings"

	"github.com/fulmenhq/gofulmen/crucible"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/oasislearninghub/oasis/internal/appid"
	"github.com/oasislearninghub/oasis/internal/config"
	"github.com/oasislearninghub/oasis/internal/observability"
)

var envInfoCmd = &cobra.Command{
	Use:   "envinfo",
	Short: "Display environment information",
	Long:  "Display environment, configuration, and version information.",
	Run: func(cmd *cobra.Command, args []string) {
		log := observability.CLILogger
		version := crucible.GetVersion()
		identity := appid.Get()

		log.Info("=== " + identity.Description + " ===")
		log.Info("")
		log.Info("Application:")
		log.Info("  Name:       " + identity.BinaryName)
		log.Info("  Version:    " + versionInfo.Version)
		log.Info("  Commit:     " + versionInfo.Commit)
		log.Info("  Built:      " + versionInfo.BuildDate)
		log.Info("  Gofulmen:   "+version.Gofulmen, zap.String("gofulmen_version", version.Gofulmen))
		log.Info("  Crucible:   "+version.Crucible, zap.String("crucible_version", version.Crucible))
		log.Info("")

		log.Info("Runtime:")
		log.Info("  Go Version: "+runtime.Version(), zap.String("go_version", runtime.Version()))
		log.Info("  Platform:   " + runtime.GOOS + "/" + runtime.GOARCH)
		log.Info(fmt.Sprintf("  NumCPU:     %d", runtime.NumCPU()), zap.Int("num_cpu", runtime.NumCPU()))
		log.Info("")

		cfg, err := loadConfig()
		if err != nil {
			log.Warn("Config load failed", zap.Error(err))
			return
		}

		log.Info("Configuration:")
		log.Info("  Config File:    " + config.DefaultConfigPath())
		log.Info(fmt.Sprintf("  Listen:         %s:%d", cfg.Server.Host, cfg.Server.Port))
		log.Info("  Log Level:      " + cfg.Logging.Level)
		log.Info("  Log Profile:    " + cfg.Logging.Profile)
		log.Info("  DB Driver:      " + cfg.Store.Driver)
		if strings.TrimSpace(cfg.Store.URL) != "" {
			log.Info("  DB URL:         " + cfg.Store.URL)
		} else {
			log.Info("  DB Path:        " + cfg.Store.Path)
		}
		if cfg.Metrics.Enabled {
			log.Info(fmt.Sprintf("  Metrics Port:   %d", cfg.Metrics.Port))
		} else {
			log.Info("  Metrics:        disabled")
		}
		if cfg.Redis.Addr != "" {
			log.Info("  Gate Stats:     redis " + cfg.Redis.Addr + " (" + cfg.Redis.Prefix + ")")
		} else {
			log.Info("  Gate Stats:     memory")
		}
		log.Info("")

		log.Info("Sessions:")
		log.Info(fmt.Sprintf("  Slides:         %d", cfg.Session.Slides))
		log.Info("  Idle TTL:       " + cfg.Session.IdleTTL.String())
		log.Info(fmt.Sprintf("  Max Sessions:   %d", cfg.Session.MaxSessions))
		log.Info(fmt.Sprintf("  Autoplay:       %t every %s, resume after %s",
			cfg.Carousel.Autoplay, cfg.Carousel.Interval, cfg.Carousel.ResumeDelay))
		log.Info("  Notice Dismiss: " + cfg.Notice.DismissAfter.String())
		if cfg.Ingress.Enabled {
			log.Info(fmt.Sprintf("  Ingress:        %.1f rps, burst %d", cfg.Ingress.RPS, cfg.Ingress.Burst))
		}
		log.Info("")

		if policies, err := cfg.Policies(); err == nil {
			log.Info("Policies:")
			for _, p := range policies.Sorted() {
				log.Info(fmt.Sprintf("  %-8s %d per %s", p.Name, p.Capacity, p.Window))
			}
			log.Info("")
		}

		log.Info("=== End Environment Information ===")
	},
}

func init() {
	rootCmd.AddCommand(envInfoCmd)
}
