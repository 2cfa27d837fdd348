// Package catalog loads component, entity type and relation type
// declarations from CUE and resolves them for entity construction.
package catalog

import (
	_ "embed"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"cuelang.org/go/cue/load"
	"github.com/google/uuid"

	"github.com/roach88/flowgraph/internal/graph"
	"github.com/roach88/flowgraph/internal/reactive"
	"github.com/roach88/flowgraph/internal/value"
)

//go:embed schema.cue
var schemaSource string

// Catalog holds the declared types. It is read-only after loading and safe
// for concurrent use.
type Catalog struct {
	components    map[graph.ComponentTypeID]*graph.Component
	entityTypes   map[graph.EntityTypeID]*graph.EntityType
	relationTypes map[graph.RelationTypeID]*graph.RelationType
}

var _ reactive.ComponentResolver = (*Catalog)(nil)

// Load reads every .cue file of the package in dir.
func Load(dir string) (*Catalog, error) {
	info, err := os.Stat(dir)
	if err != nil {
		return nil, &LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("catalog directory: %v", err)}
	}
	if !info.IsDir() {
		return nil, &LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("not a directory: %s", dir)}
	}

	files, err := filepath.Glob(filepath.Join(dir, "*.cue"))
	if err != nil || len(files) == 0 {
		return nil, &LoadError{Code: ErrCodeNoFiles, Message: fmt.Sprintf("no CUE files found in %s", dir)}
	}

	instances := load.Instances([]string{"."}, &load.Config{Dir: dir})
	if len(instances) == 0 {
		return nil, &LoadError{Code: ErrCodeLoadFailed, Message: "no CUE instances loaded"}
	}
	if err := instances[0].Err; err != nil {
		return nil, fromCUE(ErrCodeLoadFailed, err)
	}

	ctx := cuecontext.New()
	return build(ctx, ctx.BuildInstance(instances[0]))
}

// LoadString compiles a single CUE source.
func LoadString(src string) (*Catalog, error) {
	ctx := cuecontext.New()
	return build(ctx, ctx.CompileString(src, cue.Filename("catalog.cue")))
}

func build(ctx *cue.Context, v cue.Value) (*Catalog, error) {
	if err := v.Err(); err != nil {
		return nil, fromCUE(ErrCodeBuildFailed, err)
	}
	schema := ctx.CompileString(schemaSource, cue.Filename("schema.cue"))
	if err := schema.Err(); err != nil {
		return nil, fromCUE(ErrCodeBuildFailed, err)
	}
	v = schema.Unify(v)
	if err := v.Validate(); err != nil {
		return nil, fromCUE(ErrCodeBuildFailed, err)
	}

	c := &Catalog{
		components:    make(map[graph.ComponentTypeID]*graph.Component),
		entityTypes:   make(map[graph.EntityTypeID]*graph.EntityType),
		relationTypes: make(map[graph.RelationTypeID]*graph.RelationType),
	}

	if err := eachDecl(v, "components", func(d decl) error {
		id := graph.NewComponentTypeID(d.namespace, d.name)
		if _, dup := c.components[id]; dup {
			return d.errorf(ErrCodeDuplicate, "component %s declared twice", id)
		}
		c.components[id] = &graph.Component{Type: id, Description: d.description, Properties: d.properties}
		return nil
	}); err != nil {
		return nil, err
	}

	if err := eachDecl(v, "entity_types", func(d decl) error {
		id := graph.NewEntityTypeID(d.namespace, d.name)
		if _, dup := c.entityTypes[id]; dup {
			return d.errorf(ErrCodeDuplicate, "entity type %s declared twice", id)
		}
		if err := c.checkComponents(d); err != nil {
			return err
		}
		c.entityTypes[id] = &graph.EntityType{
			Type:        id,
			Description: d.description,
			Components:  d.components,
			Properties:  d.properties,
		}
		return nil
	}); err != nil {
		return nil, err
	}

	if err := eachDecl(v, "relation_types", func(d decl) error {
		id := graph.NewRelationTypeID(d.namespace, d.name)
		if _, dup := c.relationTypes[id]; dup {
			return d.errorf(ErrCodeDuplicate, "relation type %s declared twice", id)
		}
		if err := c.checkComponents(d); err != nil {
			return err
		}
		rt := &graph.RelationType{
			Type:        id,
			Description: d.description,
			Components:  d.components,
			Properties:  d.properties,
		}
		var err error
		if rt.OutboundType, err = d.entityRef("outbound_type"); err != nil {
			return err
		}
		if rt.InboundType, err = d.entityRef("inbound_type"); err != nil {
			return err
		}
		c.relationTypes[id] = rt
		return nil
	}); err != nil {
		return nil, err
	}

	return c, nil
}

func (c *Catalog) checkComponents(d decl) error {
	for _, ty := range d.components {
		if _, ok := c.components[ty]; !ok {
			return d.errorf(ErrCodeUnknownComponent, "%s::%s references unknown component %s", d.namespace, d.name, ty)
		}
	}
	return nil
}

// =============================================================================
// Lookup
// =============================================================================

// Component returns the component declaration.
func (c *Catalog) Component(ty graph.ComponentTypeID) (*graph.Component, bool) {
	comp, ok := c.components[ty]
	return comp, ok
}

// EntityType returns the entity type declaration.
func (c *Catalog) EntityType(ty graph.EntityTypeID) (*graph.EntityType, bool) {
	et, ok := c.entityTypes[ty]
	return et, ok
}

// RelationType returns the relation type declaration.
func (c *Catalog) RelationType(ty graph.RelationTypeID) (*graph.RelationType, bool) {
	rt, ok := c.relationTypes[ty]
	return rt, ok
}

// Components returns every component ordered by type.
func (c *Catalog) Components() []*graph.Component {
	return sortedValues(c.components, func(x *graph.Component) string { return x.Type.String() })
}

// EntityTypes returns every entity type ordered by type.
func (c *Catalog) EntityTypes() []*graph.EntityType {
	return sortedValues(c.entityTypes, func(x *graph.EntityType) string { return x.Type.String() })
}

// RelationTypes returns every relation type ordered by type.
func (c *Catalog) RelationTypes() []*graph.RelationType {
	return sortedValues(c.relationTypes, func(x *graph.RelationType) string { return x.Type.String() })
}

func sortedValues[K comparable, V any](m map[K]V, key func(V) string) []V {
	out := make([]V, 0, len(m))
	for _, v := range m {
		out = append(out, v)
	}
	slices.SortFunc(out, func(a, b V) int { return strings.Compare(key(a), key(b)) })
	return out
}

// PropertiesOf returns the own declarations of et followed by those of its
// components in listed order. The first declaration of a name wins.
func (c *Catalog) PropertiesOf(et *graph.EntityType) []graph.PropertyType {
	seen := make(map[string]bool)
	var out []graph.PropertyType
	add := func(props []graph.PropertyType) {
		for _, p := range props {
			if !seen[p.Name] {
				seen[p.Name] = true
				out = append(out, p)
			}
		}
	}
	add(et.Properties)
	for _, ty := range et.Components {
		if comp, ok := c.components[ty]; ok {
			add(comp.Properties)
		}
	}
	return out
}

// NewEntity creates an entity of a declared type with every declared
// property at its default.
func (c *Catalog) NewEntity(ty graph.EntityTypeID, id uuid.UUID) (*reactive.Entity, error) {
	et, ok := c.entityTypes[ty]
	if !ok {
		return nil, fmt.Errorf("unknown entity type %s", ty)
	}
	return reactive.NewEntityFromType(et, id, c), nil
}

// =============================================================================
// Declarations
// =============================================================================

type decl struct {
	v           cue.Value
	namespace   string
	name        string
	description string
	components  []graph.ComponentTypeID
	properties  []graph.PropertyType
}

func (d decl) errorf(code, format string, args ...any) error {
	return &LoadError{Code: code, Message: fmt.Sprintf(format, args...), Pos: d.v.Pos()}
}

func (d decl) entityRef(field string) (graph.EntityTypeID, error) {
	fv := d.v.LookupPath(cue.ParsePath(field))
	if !fv.Exists() {
		return graph.EntityTypeID{}, nil
	}
	s, err := fv.String()
	if err != nil {
		return graph.EntityTypeID{}, fromCUE(ErrCodeInvalid, err)
	}
	ty, err := graph.ParseEntityTypeID(s)
	if err != nil {
		return graph.EntityTypeID{}, &LoadError{Code: ErrCodeInvalid, Message: fmt.Sprintf("%s: %v", field, err), Pos: fv.Pos()}
	}
	return ty, nil
}

func eachDecl(root cue.Value, section string, fn func(decl) error) error {
	sv := root.LookupPath(cue.ParsePath(section))
	if !sv.Exists() {
		return nil
	}
	iter, err := sv.Fields()
	if err != nil {
		return fromCUE(ErrCodeInvalid, err)
	}
	for iter.Next() {
		d, err := parseDecl(iter.Value())
		if err != nil {
			return err
		}
		if err := fn(d); err != nil {
			return err
		}
	}
	return nil
}

func parseDecl(v cue.Value) (decl, error) {
	d := decl{v: v}
	var err error
	if d.namespace, err = v.LookupPath(cue.ParsePath("namespace")).String(); err != nil {
		return d, fromCUE(ErrCodeInvalid, err)
	}
	if d.name, err = v.LookupPath(cue.ParsePath("name")).String(); err != nil {
		return d, fromCUE(ErrCodeInvalid, err)
	}
	if dv := v.LookupPath(cue.ParsePath("description")); dv.Exists() {
		if d.description, err = dv.String(); err != nil {
			return d, fromCUE(ErrCodeInvalid, err)
		}
	}

	if cv := v.LookupPath(cue.ParsePath("components")); cv.Exists() {
		iter, err := cv.List()
		if err != nil {
			return d, fromCUE(ErrCodeInvalid, err)
		}
		for iter.Next() {
			s, err := iter.Value().String()
			if err != nil {
				return d, fromCUE(ErrCodeInvalid, err)
			}
			ty, err := graph.ParseComponentTypeID(s)
			if err != nil {
				return d, &LoadError{Code: ErrCodeInvalid, Message: err.Error(), Pos: iter.Value().Pos()}
			}
			d.components = append(d.components, ty)
		}
	}

	if pv := v.LookupPath(cue.ParsePath("properties")); pv.Exists() {
		iter, err := pv.Fields()
		if err != nil {
			return d, fromCUE(ErrCodeInvalid, err)
		}
		for iter.Next() {
			p, err := parseProperty(iter.Label(), iter.Value())
			if err != nil {
				return d, err
			}
			d.properties = append(d.properties, p)
		}
	}
	return d, nil
}

func parseProperty(name string, v cue.Value) (graph.PropertyType, error) {
	dt, err := v.LookupPath(cue.ParsePath("data_type")).String()
	if err != nil {
		return graph.PropertyType{}, fromCUE(ErrCodeInvalid, err)
	}
	p := graph.NewPropertyType(name, graph.DataType(dt))

	if mv := v.LookupPath(cue.ParsePath("mutable")); mv.Exists() {
		mutable, err := mv.Bool()
		if err != nil {
			return p, fromCUE(ErrCodeInvalid, err)
		}
		if !mutable {
			p.Mutability = graph.Immutable
		}
	}
	if dv := v.LookupPath(cue.ParsePath("description")); dv.Exists() {
		if p.Description, err = dv.String(); err != nil {
			return p, fromCUE(ErrCodeInvalid, err)
		}
	}
	if dv := v.LookupPath(cue.ParsePath("default")); dv.Exists() {
		raw, err := dv.MarshalJSON()
		if err != nil {
			return p, fromCUE(ErrCodeInvalid, err)
		}
		if p.Default, err = value.Unmarshal(raw); err != nil {
			return p, &LoadError{Code: ErrCodeInvalid, Message: fmt.Sprintf("default of %s: %v", name, err), Pos: dv.Pos()}
		}
	}
	return p, nil
}
