// Copyright (C) 2025 CardinalHQ, Inc
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as
// published by the Free Software Foundation, version 3.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Affero General Public License for more details.
//
// You should have received a copy of the GNU Affero General Public License
// along with this program. If not, see <http://www.gnu.org/licenses/>.

package config

import (
	"errors"
	"reflect"
	"strings"

	"github.com/spf13/viper"
)

const (
	// EnvPrefix prefixes every environment override.
	EnvPrefix = "CHUNKPROFILE"
	// FileName is the config file looked up in the working directory.
	FileName = "chunkprofile"
)

// Config aggregates configuration for the application.
// Each section maps onto the options of the package that consumes it.
type Config struct {
	Input     InputConfig     `mapstructure:"input"`
	Transform TransformConfig `mapstructure:"transform"`
	Aggregate AggregateConfig `mapstructure:"aggregate"`
	Report    ReportConfig    `mapstructure:"report"`
	Export    ExportConfig    `mapstructure:"export"`
	Log       LogConfig       `mapstructure:"log"`
}

type InputConfig struct {
	ChunkSize   int      `mapstructure:"chunk_size" validate:"gt=0"`
	Delimiter   string   `mapstructure:"delimiter" validate:"len=1"`
	Compression string   `mapstructure:"compression" validate:"oneof=auto none gzip gz bzip2 bz2 zstd zst"`
	NullValues  []string `mapstructure:"null_values"`
	Strict      bool     `mapstructure:"strict"`
	SkipRows    int64    `mapstructure:"skip_rows" validate:"gte=0"`
	Limit       int64    `mapstructure:"limit" validate:"gte=0"`
}

type TransformConfig struct {
	Categorize    []string          `mapstructure:"categorize"`
	MaxCategories int               `mapstructure:"max_categories" validate:"gte=0"`
	SuffixStrip   map[string]string `mapstructure:"suffix_strip" validate:"dive,required"`
	DateColumns   []string          `mapstructure:"date_columns"`
	DateLayouts   []string          `mapstructure:"date_layouts" validate:"min=1,dive,required"`
	ColumnTypes   map[string]string `mapstructure:"column_types"`
	DropEmptyRows bool              `mapstructure:"drop_empty_rows"`
}

type AggregateConfig struct {
	OnMismatch       string   `mapstructure:"on_mismatch" validate:"oneof=abort skip"`
	Workers          int      `mapstructure:"workers" validate:"gte=1"`
	ConsistencyKinds []string `mapstructure:"consistency_kinds" validate:"dive,oneof=numeric text categorical date"`
	UsefulColumns    []string `mapstructure:"useful_columns"`
	NullCountColumns []string `mapstructure:"null_count_columns"`
	DistinctColumns  []string `mapstructure:"distinct_columns"`
	QuantileColumns  []string `mapstructure:"quantile_columns"`
	QuantileAccuracy float64  `mapstructure:"quantile_accuracy" validate:"gt=0,lt=1"`
}

type ReportConfig struct {
	Format          string    `mapstructure:"format" validate:"oneof=text json"`
	UniqueThreshold int       `mapstructure:"unique_threshold" validate:"gt=0"`
	TopValues       int       `mapstructure:"top_values" validate:"gte=0"`
	Quantiles       []float64 `mapstructure:"quantiles" validate:"dive,gt=0,lt=1"`
}

type ExportConfig struct {
	SchemaName         string `mapstructure:"schema_name" validate:"required"`
	MaxRowsPerRowGroup int64  `mapstructure:"max_rows_per_row_group" validate:"gt=0"`
}

type LogConfig struct {
	// File, when set, receives a JSON copy of every log record.
	File  string `mapstructure:"file"`
	Debug bool   `mapstructure:"debug"`
}

// Load reads configuration from a file and environment variables, then validates it.
// When path is empty, chunkprofile.yaml is looked up in the working directory and
// may be absent. Environment variables use the prefix "CHUNKPROFILE" and the dot
// character in keys is replaced by an underscore. For example,
// "input.chunk_size" becomes "CHUNKPROFILE_INPUT_CHUNK_SIZE".
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	v := viper.New()
	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName(FileName)
		v.AddConfigPath(".")
	}
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	bindEnvs(v, cfg)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, err
		}
	}

	if err := v.Unmarshal(cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// bindEnvs registers all keys within cfg so that viper will look up
// corresponding environment variables when unmarshalling.
func bindEnvs(v *viper.Viper, cfg any, parts ...string) {
	val := reflect.ValueOf(cfg)
	typ := reflect.TypeOf(cfg)
	if typ.Kind() == reflect.Ptr {
		val = val.Elem()
		typ = typ.Elem()
	}
	for i := 0; i < typ.NumField(); i++ {
		f := typ.Field(i)
		tag := f.Tag.Get("mapstructure")
		if tag == "" {
			tag = strings.ToLower(f.Name)
		}
		key := append(parts, tag)
		if f.Type.Kind() == reflect.Struct {
			bindEnvs(v, val.Field(i).Interface(), key...)
			continue
		}
		_ = v.BindEnv(strings.Join(key, "."))
	}
}
