package l10n

import (
	"reflect"
	"regexp"
	"strings"
	"sync/atomic"

	"github.com/go-faster/errors"
	"github.com/go-playground/locales/en"
	"github.com/go-playground/locales/zh"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	entranslations "github.com/go-playground/validator/v10/translations/en"
	zhtranslations "github.com/go-playground/validator/v10/translations/zh"
	"golang.org/x/text/language"
)

// DefaultCodeSuffix is appended to a column name to form its code sidecar.
const DefaultCodeSuffix = "编码"

var (
	ErrInvalidConfig  = errors.New("invalid mapping config")
	ErrUnknownVersion = errors.New("unknown mapping version")
)

// Config is one complete mapping set: how source columns are renamed, how
// their values are translated and how the output is laid out.
type Config struct {
	Version     string `json:"version" yaml:"version" toml:"version" validate:"required"`
	Description string `json:"description,omitempty" yaml:"description,omitempty" toml:"description,omitempty"`
	CodeSuffix  string `json:"code_suffix,omitempty" yaml:"code_suffix,omitempty" toml:"code_suffix,omitempty"`

	Rename      map[string]string            `json:"rename" yaml:"rename" toml:"rename" validate:"dive,keys,required,endkeys,required"`
	ValueMaps   map[string]map[string]string `json:"value_maps" yaml:"value_maps" toml:"value_maps" validate:"dive,keys,required,endkeys,required"`
	OutputOrder []string                     `json:"output_order,omitempty" yaml:"output_order,omitempty" toml:"output_order,omitempty" validate:"dive,required"`
	DropColumns []string                     `json:"drop_columns,omitempty" yaml:"drop_columns,omitempty" toml:"drop_columns,omitempty" validate:"dive,required"`

	Output OutputConfig `json:"output" yaml:"output" toml:"output"`
}

type OutputConfig struct {
	Format     string `json:"format" yaml:"format" toml:"format" validate:"omitempty,oneof=csv xlsx"`
	FileName   string `json:"file_name" yaml:"file_name" toml:"file_name"`
	Sheet      string `json:"sheet,omitempty" yaml:"sheet,omitempty" toml:"sheet,omitempty"`
	Table      string `json:"table,omitempty" yaml:"table,omitempty" toml:"table,omitempty"`
	TableStyle string `json:"table_style,omitempty" yaml:"table_style,omitempty" toml:"table_style,omitempty"`
}

var (
	validate = validator.New()
	uni      *ut.UniversalTranslator
	// Struct tag failures are reported in Chinese unless SetMessageLocale
	// picks another language.
	trans atomic.Value

	tableNamePattern = regexp.MustCompile(`^[A-Za-z_\\][A-Za-z0-9_.]*$`)
	// A1 and R1C1 shaped names collide with cell references.
	cellRefPattern = regexp.MustCompile(`^(?i:[a-z]{1,3}[0-9]+|r[0-9]*c?[0-9]*|c[0-9]*)$`)
)

func init() {
	validate.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("yaml"), ",")
		if name == "" || name == "-" {
			return f.Name
		}
		return name
	})
	zhLocale := zh.New()
	uni = ut.New(zhLocale, zhLocale, en.New())

	zhTrans, _ := uni.GetTranslator("zh")
	if err := zhtranslations.RegisterDefaultTranslations(validate, zhTrans); err != nil {
		panic(err)
	}
	enTrans, _ := uni.GetTranslator("en")
	if err := entranslations.RegisterDefaultTranslations(validate, enTrans); err != nil {
		panic(err)
	}
	trans.Store(zhTrans)
}

// SetMessageLocale picks the language of validation messages. Chinese and
// English are available; any other tag falls back to Chinese.
func SetMessageLocale(tag language.Tag) {
	base, _ := tag.Base()
	t, ok := uni.GetTranslator(base.String())
	if !ok {
		t, _ = uni.GetTranslator("zh")
	}
	trans.Store(t)
}

func validTableName(name string) bool {
	return tableNamePattern.MatchString(name) && !cellRefPattern.MatchString(name)
}

func describe(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err.Error()
	}
	t := trans.Load().(ut.Translator)
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		msgs = append(msgs, fe.Namespace()+": "+fe.Translate(t))
	}
	return strings.Join(msgs, "; ")
}

// Validate checks structure with struct tags, then the cross-field rules:
// rename targets are unique and output_order lists each column once.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return errors.Wrapf(ErrInvalidConfig, "%s", describe(err))
	}

	targets := make(map[string]string, len(c.Rename))
	for src, dst := range c.Rename {
		dst = strings.TrimSpace(dst)
		if prev, dup := targets[dst]; dup {
			return errors.Wrapf(ErrInvalidConfig, "rename: %q and %q both map to %q", prev, src, dst)
		}
		targets[dst] = src
	}

	for col, m := range c.ValueMaps {
		for raw, label := range m {
			if raw == "" || label == "" {
				return errors.Wrapf(ErrInvalidConfig, "value_maps.%s: empty key or label", col)
			}
		}
	}

	seen := make(map[string]struct{}, len(c.OutputOrder))
	for _, col := range c.OutputOrder {
		if _, dup := seen[col]; dup {
			return errors.Wrapf(ErrInvalidConfig, "output_order: %q listed twice", col)
		}
		seen[col] = struct{}{}
	}

	if c.Output.Format == "xlsx" && c.Output.Table != "" && !validTableName(c.Output.Table) {
		return errors.Wrapf(ErrInvalidConfig, "output.table: %q is not a valid table name", c.Output.Table)
	}
	return nil
}

// Suffix returns the configured sidecar suffix or the default one.
func (c *Config) Suffix() string {
	if c.CodeSuffix == "" {
		return DefaultCodeSuffix
	}
	return c.CodeSuffix
}

// Clone returns a deep copy so callers can adjust a shared mapping set.
func (c *Config) Clone() *Config {
	out := *c
	out.Rename = make(map[string]string, len(c.Rename))
	for k, v := range c.Rename {
		out.Rename[k] = v
	}
	out.ValueMaps = make(map[string]map[string]string, len(c.ValueMaps))
	for col, m := range c.ValueMaps {
		cp := make(map[string]string, len(m))
		for k, v := range m {
			cp[k] = v
		}
		out.ValueMaps[col] = cp
	}
	out.OutputOrder = append([]string(nil), c.OutputOrder...)
	out.DropColumns = append([]string(nil), c.DropColumns...)
	return &out
}

// WithDrops returns a copy of c with extra columns added to the denylist.
func (c *Config) WithDrops(cols ...string) *Config {
	out := c.Clone()
	have := make(map[string]struct{}, len(out.DropColumns))
	for _, d := range out.DropColumns {
		have[d] = struct{}{}
	}
	for _, col := range cols {
		col = strings.TrimSpace(col)
		if col == "" {
			continue
		}
		if _, ok := have[col]; ok {
			continue
		}
		have[col] = struct{}{}
		out.DropColumns = append(out.DropColumns, col)
	}
	return out
}
