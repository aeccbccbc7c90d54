package config

import (
	"bytes"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
	c "github.com/relloyd/xlpipe/constants"
	"github.com/relloyd/xlpipe/helper"
	"github.com/relloyd/xlpipe/models"
	"github.com/relloyd/xlpipe/project"
	"github.com/relloyd/xlpipe/rdbms"
	"github.com/spf13/viper"
)

// Project is the contents of xlpipe.yaml.
type Project struct {
	Name      string                 `mapstructure:"name" json:"name" yaml:"name"`
	Database  string                 `mapstructure:"database" json:"database" yaml:"database"`
	InputDir  string                 `mapstructure:"inputDir" json:"inputDir" yaml:"inputDir" errorTxt:"inputDir" mandatory:"yes"`
	WorkDir   string                 `mapstructure:"workDir" json:"workDir" yaml:"workDir"`       // where CSV files are written; defaults to InputDir.
	ModelsDir string                 `mapstructure:"modelsDir" json:"modelsDir" yaml:"modelsDir"` // empty uses the embedded models.
	Warehouse WarehouseConfig        `mapstructure:"warehouse" json:"warehouse" yaml:"warehouse"`
	Stage     StageConfig            `mapstructure:"stage" json:"stage" yaml:"stage"`
	Sources   []SourceConfig         `mapstructure:"sources" json:"sources" yaml:"sources"`
	Vars      map[string]interface{} `mapstructure:"vars" json:"vars" yaml:"vars"`
	FileName  string                 `mapstructure:"-" json:"-" yaml:"-"` // the file loaded, if any.
}

type WarehouseConfig struct {
	Connection string        `mapstructure:"connection" json:"connection" yaml:"connection" errorTxt:"warehouse.connection" mandatory:"yes"`
	Schemas    SchemasConfig `mapstructure:"schemas" json:"schemas" yaml:"schemas"`
}

type SchemasConfig struct {
	Raw      string `mapstructure:"raw" json:"raw" yaml:"raw" errorTxt:"warehouse.schemas.raw" mandatory:"yes"`
	Staging  string `mapstructure:"staging" json:"staging" yaml:"staging" errorTxt:"warehouse.schemas.staging" mandatory:"yes"`
	Marts    string `mapstructure:"marts" json:"marts" yaml:"marts" errorTxt:"warehouse.schemas.marts" mandatory:"yes"`
	Analyses string `mapstructure:"analyses" json:"analyses" yaml:"analyses" errorTxt:"warehouse.schemas.analyses" mandatory:"yes"`
}

// ForLayer returns the schema of a model layer.
func (s SchemasConfig) ForLayer() map[string]string {
	return map[string]string{
		c.LayerStaging:  s.Staging,
		c.LayerMarts:    s.Marts,
		c.LayerAnalyses: s.Analyses,
	}
}

type StageConfig struct {
	Type               string `mapstructure:"type" json:"type" yaml:"type" errorTxt:"stage.type" mandatory:"yes"`
	Name               string `mapstructure:"name" json:"name" yaml:"name"`                                        // snowflake stage name.
	Connection         string `mapstructure:"connection" json:"connection" yaml:"connection"`                      // s3 connection name.
	StorageIntegration string `mapstructure:"storageIntegration" json:"storageIntegration" yaml:"storageIntegration"` // optional for s3 stages.
	Directory          string `mapstructure:"directory" json:"directory" yaml:"directory"`                         // local stage directory.
}

type SourceConfig struct {
	Table       string   `mapstructure:"table" json:"table" yaml:"table"`
	Spreadsheet string   `mapstructure:"spreadsheet" json:"spreadsheet" yaml:"spreadsheet"`
	Columns     []string `mapstructure:"columns" json:"columns" yaml:"columns"`
}

// LoadProject reads the embedded default project and merges fileName over it.
// When fileName is empty, xlpipe.yaml in the working directory is used if it exists.
// Environment variables prefixed XP_ override any key, e.g. XP_WAREHOUSE_CONNECTION.
func LoadProject(fileName string) (*Project, error) {
	v := viper.New()
	v.SetConfigType("yaml")
	v.SetEnvPrefix(c.EnvVarPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	if err := v.ReadConfig(bytes.NewReader(project.DefaultConfig())); err != nil {
		return nil, errors.Wrap(err, "unable to read the default project")
	}
	if fileName == "" {
		if _, err := os.Stat(project.DefaultConfigFileName); err == nil {
			fileName = project.DefaultConfigFileName
		}
	}
	if fileName != "" {
		v.SetConfigFile(fileName)
		if err := v.MergeInConfig(); err != nil {
			return nil, errors.Wrapf(err, "unable to read project file %q", fileName)
		}
	}
	p := &Project{}
	if err := v.Unmarshal(p); err != nil {
		return nil, errors.Wrap(err, "unable to parse project")
	}
	p.FileName = fileName
	if fileName != "" {
		base := filepath.Dir(fileName)
		p.InputDir = resolvePath(base, p.InputDir)
		p.WorkDir = resolvePath(base, p.WorkDir)
		p.ModelsDir = resolvePath(base, p.ModelsDir)
		p.Stage.Directory = resolvePath(base, p.Stage.Directory)
	}
	if p.WorkDir == "" {
		p.WorkDir = p.InputDir
	}
	if err := p.Validate(); err != nil {
		return nil, err
	}
	return p, nil
}

// Validate checks mandatory keys and the consistency of sources and stage.
func (p *Project) Validate() error {
	if err := helper.ValidateStructIsPopulated(p); err != nil {
		return err
	}
	if len(p.Sources) == 0 {
		return errors.New("please supply at least one source")
	}
	seen := make(map[string]bool)
	for idx, s := range p.Sources {
		if s.Table == "" || s.Spreadsheet == "" || len(s.Columns) == 0 {
			return fmt.Errorf("source %v needs a table, a spreadsheet and columns", idx+1)
		}
		if seen[s.Table] {
			return fmt.Errorf("source table %q is listed more than once", s.Table)
		}
		seen[s.Table] = true
	}
	switch p.Stage.Type {
	case c.StageTypeSnowflake:
		if p.Stage.Name == "" {
			return errors.New("please supply stage.name for a snowflake stage")
		}
	case c.StageTypeS3:
		if p.Stage.Connection == "" {
			return errors.New("please supply stage.connection for an s3 stage")
		}
		if p.Stage.Name == "" {
			return errors.New("please supply stage.name for an s3 stage")
		}
	case c.StageTypeLocal:
	default:
		return fmt.Errorf("unsupported stage type %q: use %v, %v or %v", p.Stage.Type, c.StageTypeSnowflake, c.StageTypeS3, c.StageTypeLocal)
	}
	return nil
}

// Source returns the source config for table.
func (p *Project) Source(table string) (SourceConfig, bool) {
	for _, s := range p.Sources {
		if s.Table == table {
			return s, true
		}
	}
	return SourceConfig{}, false
}

// SourceTables returns the source table names in project order.
func (p *Project) SourceTables() []string {
	out := make([]string, len(p.Sources))
	for idx, s := range p.Sources {
		out[idx] = s.Table
	}
	return out
}

// SpreadsheetPath returns the full path of the workbook for s.
func (p *Project) SpreadsheetPath(s SourceConfig) string {
	return resolvePath(p.InputDir, s.Spreadsheet)
}

func resolvePath(base string, p string) string {
	if p == "" || filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(base, p)
}

// ModelsFS returns the models directory, or the models compiled into the binary when none is set.
func (p *Project) ModelsFS() fs.FS {
	if p.ModelsDir == "" {
		return project.Models()
	}
	return os.DirFS(p.ModelsDir)
}

// LoadModels parses and validates the project's models.
func (p *Project) LoadModels() (*models.Project, error) {
	return models.LoadProject(p.ModelsFS(), p.Vars)
}

// Target returns where models are built for the warehouse dialect d.
func (p *Project) Target(d rdbms.Dialect) models.Target {
	return models.Target{
		Dialect:      d,
		SourceSchema: p.Warehouse.Schemas.Raw,
		Sources:      p.SourceTables(),
		LayerSchemas: p.Warehouse.Schemas.ForLayer(),
	}
}
