package contracts

import (
	"encoding/json"
	"fmt"
	"io/fs"
	"log"
	"strings"

	"import-service/schemas"

	"github.com/santhosh-tekuri/jsonschema/v5"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

const resourcePrefix = "mem://schemas/"

// Ключи зарегистрированных схем
const (
	TakeoutFeaturesExport = "TakeoutFeaturesExport/1.0.0"
	PlaceListExport       = "PlaceListExport/1.0.0"
	ListCreatedEvent      = "ListCreatedEvent/1.0.0"
	JobFinishedEvent      = "JobFinishedEvent/1.0.0"
)

var schemaKinds = map[string]string{
	"exports": "Export",
	"events":  "Event",
}

var compiledSchemas = make(map[string]*jsonschema.Schema)

func init() {
	compiler := jsonschema.NewCompiler()
	compiler.AssertFormat = true

	var paths []string
	for dir := range schemaKinds {
		err := fs.WalkDir(schemas.SchemasFS, dir, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if d.IsDir() || !strings.HasSuffix(path, ".json") {
				return nil
			}
			file, err := schemas.SchemasFS.Open(path)
			if err != nil {
				return err
			}
			defer file.Close()
			// Префикс нужен, чтобы URL ресурса был абсолютным
			if err := compiler.AddResource(resourcePrefix+path, file); err != nil {
				return fmt.Errorf("add schema resource %s: %w", path, err)
			}
			paths = append(paths, path)
			return nil
		})
		if err != nil {
			log.Fatalf("error walking and adding schema resources: %v", err)
		}
	}

	for _, path := range paths {
		schema, err := compiler.Compile(resourcePrefix + path)
		if err != nil {
			log.Fatalf("failed to compile schema %s: %v", path, err)
		}
		compiledSchemas[generateKeyFromPath(path)] = schema
	}
}

// generateKeyFromPath преобразует путь вида "exports/takeout-features/v1.json"
// в ключ вида "TakeoutFeaturesExport/1.0.0".
func generateKeyFromPath(path string) string {
	parts := strings.Split(strings.TrimSuffix(path, ".json"), "/")
	if len(parts) != 3 {
		return ""
	}
	suffix, ok := schemaKinds[parts[0]]
	if !ok {
		return ""
	}

	caser := cases.Title(language.English)
	var name strings.Builder
	for _, p := range strings.Split(parts[1], "-") {
		name.WriteString(caser.String(p))
	}
	name.WriteString(suffix)

	version := strings.Replace(parts[2], "v", "", 1) + ".0.0"
	return fmt.Sprintf("%s/%s", name.String(), version)
}

// Validate проверяет уже разобранный JSON-документ по схеме с ключом key
func Validate(key string, doc interface{}) error {
	schema, ok := compiledSchemas[key]
	if !ok {
		return fmt.Errorf("schema %q not found", key)
	}
	if err := schema.Validate(doc); err != nil {
		return fmt.Errorf("JSON schema validation failed: %w", err)
	}
	return nil
}

// ValidateJSON разбирает тело и проверяет его по схеме
func ValidateJSON(key string, body []byte) error {
	var v interface{}
	if err := json.Unmarshal(body, &v); err != nil {
		return fmt.Errorf("body is not a valid JSON: %w", err)
	}
	return Validate(key, v)
}
