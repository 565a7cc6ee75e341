package cmd

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"time"

	"github.com/fulmenhq/gofulmen/crucible"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/oasislearninghub/oasis/internal/appid"
	"github.com/oasislearninghub/oasis/internal/config"
	"github.com/oasislearninghub/oasis/internal/core/gate"
	"github.com/oasislearninghub/oasis/internal/observability"
)

var doctorCmd = &cobra.Command{
	Use:   "doctor",
	Short: "Run diagnostic checks",
	Long:  "Run diagnostic checks on the configuration, enrollment store and gate statistics backend.",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		if ctx == nil {
			ctx = context.Background()
		}
		log := observability.CLILogger

		log.Info("=== " + appid.Get().BinaryName + " doctor ===")
		log.Info("")

		const total = 6
		failed := 0
		step := func(n int, name string) string { return fmt.Sprintf("[%d/%d] Checking %s...", n, total, name) }

		log.Info(fmt.Sprintf("%s ✅ %s", step(1, "Go version"), runtime.Version()), zap.String("go_version", runtime.Version()))

		version := crucible.GetVersion()
		if version.Crucible != "" && version.Gofulmen != "" {
			log.Info(fmt.Sprintf("%s ✅ gofulmen %s, crucible %s", step(2, "Fulmen libraries"), version.Gofulmen, version.Crucible))
		} else {
			log.Warn(step(2, "Fulmen libraries") + " ⚠️  version metadata unavailable")
		}

		configPath := config.DefaultConfigPath()
		if configPath == "" {
			log.Warn(step(3, "config directory") + " ⚠️  cannot resolve config directory")
		} else if _, err := os.Stat(configPath); err == nil {
			log.Info(fmt.Sprintf("%s ✅ %s", step(3, "config file"), configPath))
		} else {
			log.Info(fmt.Sprintf("%s ✅ defaults (no %s; run '%s doctor init')", step(3, "config file"), configPath, appid.Get().BinaryName))
		}

		cfg, err := loadConfig()
		if err != nil {
			log.Error(step(4, "configuration")+" ❌ invalid", zap.Error(err))
			return err
		}
		policies, err := cfg.Policies()
		if err == nil {
			err = gate.DefaultBindings.Validate(policies)
		}
		if err != nil {
			log.Error(step(4, "configuration")+" ❌ invalid policies", zap.Error(err))
			failed++
		} else {
			log.Info(fmt.Sprintf("%s ✅ %d policies", step(4, "configuration"), len(policies)))
		}

		checkCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()

		if db, err := openStore(checkCtx, cfg.Store); err != nil {
			log.Error(step(5, "enrollment store")+" ❌ cannot open", zap.Error(err))
			failed++
		} else {
			enrollments, listErr := db.ListEnrollments(checkCtx)
			schema, _ := db.Meta(checkCtx, "schema_version")
			_ = db.Close()
			if listErr != nil {
				log.Error(step(5, "enrollment store")+" ❌ cannot read", zap.Error(listErr))
				failed++
			} else {
				log.Info(fmt.Sprintf("%s ✅ %s schema v%s (%d enrollments)", step(5, "enrollment store"), db.Driver(), schema, len(enrollments)))
			}
		}

		if cfg.Redis.Addr == "" {
			log.Info(step(6, "gate statistics") + " ✅ in-memory")
		} else {
			rdb := redis.NewClient(&redis.Options{Addr: cfg.Redis.Addr, Password: cfg.Redis.Password, DB: cfg.Redis.DB})
			pingErr := rdb.Ping(checkCtx).Err()
			_ = rdb.Close()
			if pingErr != nil {
				// Gates work without statistics, so this only warns.
				log.Warn(fmt.Sprintf("%s ⚠️  redis %s unreachable", step(6, "gate statistics"), cfg.Redis.Addr), zap.Error(pingErr))
			} else {
				log.Info(fmt.Sprintf("%s ✅ redis %s", step(6, "gate statistics"), cfg.Redis.Addr))
			}
		}

		log.Info("")
		log.Info("=== End Diagnostics ===")
		if failed > 0 {
			return fmt.Errorf("%d diagnostic check(s) failed", failed)
		}
		return nil
	},
}

var doctorInitForce bool

var doctorInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a config file holding the defaults",
	RunE: func(cmd *cobra.Command, args []string) error {
		configPath := cfgFile
		if configPath == "" {
			configPath = config.DefaultConfigPath()
		}
		if configPath == "" {
			return fmt.Errorf("config path not resolved")
		}
		if _, err := os.Stat(configPath); err == nil && !doctorInitForce {
			return fmt.Errorf("config file already exists: %s (use --force to overwrite)", configPath)
		}

		payload, err := defaultConfigYAML()
		if err != nil {
			return err
		}
		if err := os.MkdirAll(filepath.Dir(configPath), 0755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
		if err := os.WriteFile(configPath, payload, 0600); err != nil {
			return fmt.Errorf("write config file: %w", err)
		}

		observability.CLILogger.Info("Config initialized", zap.String("path", configPath))
		return nil
	},
}

// defaultConfigYAML renders the built-in defaults without environment
// overrides.
func defaultConfigYAML() ([]byte, error) {
	v := viper.New()
	config.SetDefaults(v)
	return yaml.Marshal(v.AllSettings())
}

func init() {
	doctorInitCmd.Flags().BoolVar(&doctorInitForce, "force", false, "overwrite an existing config file")
	doctorCmd.AddCommand(doctorInitCmd)
	rootCmd.AddCommand(doctorCmd)
}
