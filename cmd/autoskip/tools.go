package main

import (
	"errors"
	"fmt"
	"image"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/eliteGoblin/autoskip/internal/domain"
	"github.com/eliteGoblin/autoskip/internal/feature"
	"github.com/eliteGoblin/autoskip/internal/infra"
	"github.com/eliteGoblin/autoskip/internal/vision"
)

var scanCmd = &cobra.Command{
	Use:   "scan",
	Short: "Match the templates against the screen once",
	Long: `Captures the screen (or reads --image) and reports the best score and
position of every loaded template. Nothing is clicked.`,
	RunE: runScan,
}

var templatesCmd = &cobra.Command{
	Use:   "templates",
	Short: "Show which templates load",
	RunE:  runTemplates,
}

var featuresCmd = &cobra.Command{
	Use:   "features",
	Short: "List automations and whether they are available",
	RunE:  runFeatures,
}

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Show or change settings",
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the effective configuration",
	RunE:  runConfigShow,
}

var configSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Save a setting that overrides autoskip.yaml",
	Args:  cobra.ExactArgs(2),
	RunE:  runConfigSet,
}

var (
	scanImage  string
	yamlOutput bool
)

func init() {
	scanCmd.Flags().StringVar(&scanImage, "image", "", "Match against an image file instead of the screen")
	templatesCmd.Flags().BoolVar(&yamlOutput, "yaml", false, "Output the report as YAML")

	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configSetCmd)
}

func runScan(cmd *cobra.Command, args []string) error {
	env, err := loadEnvironment()
	if err != nil {
		return err
	}

	logger, _ := zap.NewDevelopment()
	defer func() { _ = logger.Sync() }()

	store := infra.NewFileTemplateStore(logger)
	infra.LoadTemplates(store, env.templatePaths(), logger)

	var frame domain.Frame
	if scanImage != "" {
		frame, err = readFrame(scanImage)
	} else {
		frame, err = infra.NewScreenCapturer().Capture()
	}
	if err != nil {
		return fmt.Errorf("capture failed: %w", err)
	}

	fmt.Println("\n=== Template Scan ===")
	fmt.Printf("Frame: %dx%d at %v (backend: %s)\n",
		frame.Size().X, frame.Size().Y, frame.Origin, vision.Backend())
	fmt.Printf("Threshold: %.2f\n", env.cfg.Threshold)

	matcher := vision.NewMatcher(logger)
	names := store.Names()
	if len(names) == 0 {
		fmt.Println("\nNo templates loaded.")
	}
	for _, name := range names {
		tpl, _ := store.Get(name)
		best, ok := matcher.Best(frame, tpl)
		fmt.Printf("\n[%s] %dx%d\n", name, tpl.Width, tpl.Height)
		if !ok {
			fmt.Println("  no score (template larger than frame or flat)")
			continue
		}
		verdict := "below threshold"
		if best.Score >= env.cfg.Threshold {
			verdict = "MATCH"
		}
		fmt.Printf("  Score: %.4f (%s)\n", best.Score, verdict)
		fmt.Printf("  Location: %v\n", best.Location)
		fmt.Printf("  Click point: %v\n", frame.ScreenPoint(best.Center))
	}

	fmt.Println("=====================")
	return nil
}

func readFrame(path string) (domain.Frame, error) {
	f, err := os.Open(path)
	if err != nil {
		return domain.Frame{}, err
	}
	defer f.Close()

	img, _, err := image.Decode(f)
	if err != nil {
		return domain.Frame{}, fmt.Errorf("decode %s: %w", path, err)
	}
	return domain.Frame{Gray: vision.ToGray(img)}, nil
}

// templateReport is one row of the templates command.
type templateReport struct {
	Name        string `yaml:"name"`
	Path        string `yaml:"path"`
	Loaded      bool   `yaml:"loaded"`
	Width       int    `yaml:"width,omitempty"`
	Height      int    `yaml:"height,omitempty"`
	Fingerprint string `yaml:"fingerprint,omitempty"`
	Problem     string `yaml:"problem,omitempty"`
}

func runTemplates(cmd *cobra.Command, args []string) error {
	env, err := loadEnvironment()
	if err != nil {
		return err
	}

	logger, _ := zap.NewDevelopment()
	defer func() { _ = logger.Sync() }()

	store := infra.NewFileTemplateStore(logger)
	var reports []templateReport
	for _, r := range infra.LoadTemplates(store, env.templatePaths(), logger) {
		rep := templateReport{Name: r.Name, Path: r.Path, Loaded: r.Err == nil}
		switch {
		case r.Err == nil:
			tpl, _ := store.Get(r.Name)
			rep.Width, rep.Height, rep.Fingerprint = tpl.Width, tpl.Height, tpl.Fingerprint
		case errors.Is(r.Err, domain.ErrTemplateMissing):
			rep.Problem = "missing"
		default:
			rep.Problem = r.Err.Error()
		}
		reports = append(reports, rep)
	}

	if yamlOutput {
		out, err := yaml.Marshal(reports)
		if err != nil {
			return err
		}
		fmt.Print(string(out))
		return nil
	}

	fmt.Println("\n=== Templates ===")
	for _, rep := range reports {
		fmt.Printf("\n[%s] %s\n", rep.Name, rep.Path)
		if rep.Loaded {
			fmt.Printf("  Size: %dx%d\n", rep.Width, rep.Height)
			fmt.Printf("  Fingerprint: %s\n", rep.Fingerprint)
		} else {
			fmt.Printf("  Unavailable: %s\n", rep.Problem)
		}
	}
	fmt.Println("\n=================")
	return nil
}

func runFeatures(cmd *cobra.Command, args []string) error {
	registry := feature.NewRegistry()

	fmt.Println("\n=== Features ===")
	for _, info := range registry.Infos() {
		fmt.Printf("\n[%s] %s (%s)\n", info.ID, info.Name, info.Capability)
		for _, t := range info.Templates {
			fmt.Printf("  - needs template %q\n", t)
		}
	}
	fmt.Println("\n================")
	return nil
}

func runConfigShow(cmd *cobra.Command, args []string) error {
	env, err := loadEnvironment()
	if err != nil {
		return err
	}
	if registry, err := env.openRegistry(); err == nil {
		applyErr := env.applySettings(registry)
		registry.Close()
		if applyErr != nil {
			return applyErr
		}
	}

	out, err := env.loader.YAML()
	if err != nil {
		return err
	}
	if file := env.loader.File(); file != "" {
		fmt.Printf("# file: %s\n", file)
	} else {
		fmt.Println("# file: none (defaults)")
	}
	fmt.Print(string(out))
	return nil
}

func runConfigSet(cmd *cobra.Command, args []string) error {
	key, value := strings.ToLower(args[0]), args[1]

	env, err := loadEnvironment()
	if err != nil {
		return err
	}
	if !env.loader.IsKey(key) {
		return fmt.Errorf("unknown setting %q (known: %v)", key, env.loader.Keys())
	}

	registry, err := env.openRegistry()
	if err != nil {
		return fmt.Errorf("failed to open registry: %w", err)
	}
	defer registry.Close()

	settings, err := registry.Settings()
	if err != nil {
		return err
	}
	settings[key] = value
	if _, err := env.loader.Override(settings); err != nil {
		return err
	}
	if err := registry.SetSetting(key, value); err != nil {
		return err
	}

	fmt.Printf("%s = %s (takes effect on next start)\n", key, value)
	return nil
}
