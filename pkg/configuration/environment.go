package configuration

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/caarlos0/env/v11"
	"github.com/iota-uz/utils/fs"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
	"golang.org/x/text/language"

	"github.com/jacksonlee411/hr-attrition-l10n/pkg/logging"
)

var DefaultEnvFiles = []string{".env", ".env.local"}

// SupportedLocales are the languages diagnostics can be reported in. The
// first one is the default.
var SupportedLocales = []language.Tag{language.SimplifiedChinese, language.English}

var singleton = sync.OnceValues(func() (*Configuration, error) {
	return Load(DefaultEnvFiles)
})

// LoadEnv loads the env files that exist. A file missing from the working
// directory is looked up in the enclosing module root (the nearest directory
// with a go.mod), so commands run from a subdirectory still see it.
func LoadEnv(envFiles []string) (int, error) {
	root := moduleRoot()

	existingFiles := make([]string, 0, len(envFiles))
	for _, file := range envFiles {
		if fs.FileExists(file) {
			existingFiles = append(existingFiles, file)
			continue
		}
		if root == "" || filepath.IsAbs(file) {
			continue
		}
		if candidate := filepath.Join(root, file); fs.FileExists(candidate) {
			existingFiles = append(existingFiles, candidate)
		}
	}

	if len(existingFiles) == 0 {
		return 0, nil
	}

	return len(existingFiles), godotenv.Load(existingFiles...)
}

func moduleRoot() string {
	dir, err := os.Getwd()
	if err != nil {
		return ""
	}
	for {
		if fs.FileExists(filepath.Join(dir, "go.mod")) {
			return dir
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return ""
		}
		dir = parent
	}
}

type Configuration struct {
	Input       string `env:"HR_L10N_INPUT" envDefault:"data/WA_Fn-UseC_-HR-Employee-Attrition.csv"`
	OutputDir   string `env:"HR_L10N_OUTPUT_DIR" envDefault:"output"`
	Version     string `env:"HR_L10N_VERSION" envDefault:"v5"`
	MappingPath string `env:"HR_L10N_MAPPING"`
	Locale      string `env:"HR_L10N_LOCALE" envDefault:"zh"`

	LogLevel string `env:"LOG_LEVEL" envDefault:"info"`
	// Logs always go to stderr; LOG_PATH adds a file copy.
	LogPath string `env:"LOG_PATH"`

	locale  language.Tag
	logFile *os.File
	logger  *logrus.Logger
}

func (c *Configuration) Logger() *logrus.Logger {
	return c.logger
}

func (c *Configuration) LogrusLogLevel() logrus.Level {
	return logging.ParseLevel(c.LogLevel)
}

// LocaleTag is the matched diagnostics locale.
func (c *Configuration) LocaleTag() language.Tag {
	return c.locale
}

// Use returns the process-wide configuration, loading it on first call.
func Use() (*Configuration, error) {
	return singleton()
}

// Load reads env files and the environment into a fresh Configuration.
// Callers other than Use own the result and must Unload it.
func Load(envFiles []string) (*Configuration, error) {
	c := &Configuration{}
	if err := c.load(envFiles); err != nil {
		c.Unload()
		return nil, err
	}
	return c, nil
}

func (c *Configuration) load(envFiles []string) error {
	n, err := LoadEnv(envFiles)
	if err != nil {
		return err
	}
	if n == 0 && os.Getenv("LOG_LEVEL") == "debug" {
		wd, _ := os.Getwd()
		log.Println("No .env files found. Tried:")
		for _, file := range envFiles {
			log.Println(filepath.Join(wd, file))
		}
	}
	if err := env.Parse(c); err != nil {
		return err
	}

	if err := c.validateLogLevel(); err != nil {
		return err
	}
	if err := c.validateLocale(); err != nil {
		return err
	}
	if err := c.validatePaths(); err != nil {
		return err
	}

	f, logger, err := logging.FileLogger(c.LogrusLogLevel(), c.LogPath)
	if err != nil {
		return err
	}
	c.logFile = f
	c.logger = logger
	return nil
}

func (c *Configuration) validateLogLevel() error {
	level := strings.ToLower(strings.TrimSpace(c.LogLevel))
	if level == "" {
		level = "info"
	}
	switch level {
	case "silent", "error", "warn", "info", "debug":
	default:
		return fmt.Errorf("invalid LOG_LEVEL=%q (expected silent|error|warn|info|debug)", c.LogLevel)
	}
	c.LogLevel = level
	return nil
}

func (c *Configuration) validateLocale() error {
	tag, err := language.Parse(strings.TrimSpace(c.Locale))
	if err != nil {
		return fmt.Errorf("invalid HR_L10N_LOCALE=%q: %w", c.Locale, err)
	}
	matcher := language.NewMatcher(SupportedLocales)
	_, idx, confidence := matcher.Match(tag)
	if confidence == language.No {
		return fmt.Errorf("unsupported HR_L10N_LOCALE=%q (expected %v)", c.Locale, SupportedLocales)
	}
	c.locale = SupportedLocales[idx]
	return nil
}

func (c *Configuration) validatePaths() error {
	c.Version = strings.ToLower(strings.TrimSpace(c.Version))
	if c.Version == "" {
		return fmt.Errorf("HR_L10N_VERSION must not be empty")
	}
	if strings.TrimSpace(c.OutputDir) == "" {
		return fmt.Errorf("HR_L10N_OUTPUT_DIR must not be empty")
	}
	c.MappingPath = strings.TrimSpace(c.MappingPath)
	return nil
}

// Unload closes the log file, if any.
func (c *Configuration) Unload() {
	if c.logFile != nil {
		if err := c.logFile.Close(); err != nil {
			log.Printf("Failed to close log file: %v", err)
		}
		c.logFile = nil
	}
}
