package config

import (
	"fmt"
	"os"
	"reflect"
	"strconv"
)

// LoadFromEnv overrides configuration values from environment variables.
// It uses the `env` struct tag to determine which environment variable to read
// and recurses into nested structs. Unset or empty variables leave the field
// untouched.
func LoadFromEnv(cfg any) error {
	return loadFromEnv(reflect.ValueOf(cfg))
}

func loadFromEnv(v reflect.Value) error {
	if v.Kind() == reflect.Ptr {
		if v.IsNil() {
			return nil
		}
		v = v.Elem()
	}
	if v.Kind() != reflect.Struct {
		return nil
	}

	t := v.Type()
	for i := 0; i < v.NumField(); i++ {
		field := v.Field(i)
		fieldType := t.Field(i)

		if !field.CanSet() {
			continue
		}

		if field.Kind() == reflect.Struct {
			if err := loadFromEnv(field); err != nil {
				return err
			}
			continue
		}

		envTag := fieldType.Tag.Get("env")
		if envTag == "" {
			continue
		}

		envValue := os.Getenv(envTag)
		if envValue == "" {
			continue
		}

		if err := setFieldValue(field, envValue, fieldType.Name, envTag); err != nil {
			return err
		}
	}

	return nil
}

// setFieldValue sets a string or bool field from an environment variable.
func setFieldValue(field reflect.Value, value string, fieldName string, envVar string) error {
	switch field.Kind() {
	case reflect.String:
		field.SetString(value)

	case reflect.Bool:
		boolVal, err := strconv.ParseBool(value)
		if err != nil {
			return fmt.Errorf("invalid boolean for %s (%s): %w", fieldName, envVar, err)
		}
		field.SetBool(boolVal)

	default:
		return fmt.Errorf("unsupported type %s for %s (%s)", field.Kind(), fieldName, envVar)
	}

	return nil
}
