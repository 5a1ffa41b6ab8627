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
	"fmt"
	"reflect"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
	"github.com/hashicorp/go-multierror"
)

var (
	validateOnce sync.Once
	validate     *validator.Validate
)

func getValidator() *validator.Validate {
	validateOnce.Do(func() {
		v := validator.New(validator.WithRequiredStructEnabled())
		// report keys the way they are written in the config file
		v.RegisterTagNameFunc(func(fld reflect.StructField) string {
			if tag := fld.Tag.Get("mapstructure"); tag != "" {
				return tag
			}
			return strings.ToLower(fld.Name)
		})
		validate = v
	})
	return validate
}

// Validate checks field constraints and the cross-field rules of the
// transform section. All violations are returned together.
func (c *Config) Validate() error {
	var errs *multierror.Error
	if err := getValidator().Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if !errors.As(err, &verrs) {
			return fmt.Errorf("validate config: %w", err)
		}
		for _, fe := range verrs {
			errs = multierror.Append(errs, fieldError(fe))
		}
	}
	if _, err := c.TransformConfig(); err != nil {
		errs = multierror.Append(errs, err)
	}
	if _, err := c.ConsistencyKinds(); err != nil {
		errs = multierror.Append(errs, err)
	}
	return errs.ErrorOrNil()
}

func fieldError(fe validator.FieldError) error {
	key := fe.Namespace()
	if i := strings.IndexByte(key, '.'); i >= 0 {
		key = key[i+1:]
	}
	if fe.Param() != "" {
		return fmt.Errorf("%s: value %v fails %s=%s", key, fe.Value(), fe.Tag(), fe.Param())
	}
	return fmt.Errorf("%s: value %v fails %s", key, fe.Value(), fe.Tag())
}
