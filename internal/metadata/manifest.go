package metadata

import (
	"bytes"
	"fmt"
	"os"

	"go.yaml.in/yaml/v3"

	"github.com/koustreak/modelerd/internal/errs"
	"github.com/koustreak/modelerd/internal/validate"
)

// Table declares a table that exists without a mapped model, typically a
// many-to-many join table.
type Table struct {
	Name    string   `yaml:"name" json:"name" validate:"required"`
	Columns []Column `yaml:"columns" json:"columns" validate:"dive"`
}

// Manifest is the YAML document describing an application's models.
//
//	models:
//	  - name: Post
//	    table: posts
//	    columns:
//	      - {name: id, sql_type: bigint, type: integer}
//	      - {name: user_id, sql_type: bigint, type: integer}
//	    associations:
//	      - {kind: belongs_to, name: user}
//	tables:
//	  - name: authors_books
type Manifest struct {
	Models []*Model `yaml:"models" validate:"required,dive,required"`
	Tables []Table  `yaml:"tables" validate:"dive"`
}

// LoadManifest reads and parses the manifest at path.
func LoadManifest(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read manifest: %w", err)
	}
	return ParseManifest(data)
}

// ParseManifest decodes and validates a manifest, then applies naming
// defaults. Unknown fields are rejected so that typos in option names
// surface early.
func ParseManifest(data []byte) (*Manifest, error) {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)

	var m Manifest
	if err := dec.Decode(&m); err != nil {
		return nil, errs.Wrap(errs.ErrKindInvalidInput, "decode manifest", err)
	}
	if err := validate.Struct(&m); err != nil {
		return nil, err
	}
	if err := m.normalize(); err != nil {
		return nil, err
	}
	return &m, nil
}

// normalize rejects duplicate model names and fills in table names. Field
// level checks have already run.
func (m *Manifest) normalize() error {
	seen := make(map[string]bool, len(m.Models))
	for _, model := range m.Models {
		if seen[model.Name] {
			return errs.Newf(errs.ErrKindInvalidInput, "model %s declared twice", model.Name)
		}
		seen[model.Name] = true

		if model.Table == "" && !model.Abstract {
			model.Table = Tableize(model.Name)
		}
	}
	return nil
}
