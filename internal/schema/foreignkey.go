package schema

import (
	"sort"

	"github.com/tordrt/schemagraph/internal/sqltype"
)

// Action is the referential action taken on update or delete.
type Action string

const (
	ActionCascade    Action = "CASCADE"
	ActionSetNull    Action = "SET_NULL"
	ActionSetDefault Action = "SET_DEFAULT"
	ActionRestrict   Action = "RESTRICT"
	ActionNone       Action = "NONE"
)

// ActionFromRule maps a catalog rule code to an Action. Unknown codes and
// "no action" map to ActionNone.
func ActionFromRule(rule int) Action {
	switch rule {
	case sqltype.RuleCascade:
		return ActionCascade
	case sqltype.RuleSetNull:
		return ActionSetNull
	case sqltype.RuleSetDefault:
		return ActionSetDefault
	case sqltype.RuleRestrict:
		return ActionRestrict
	default:
		return ActionNone
	}
}

// Reference links a local column to a foreign column inside a foreign key.
// LocalColumn and ForeignColumn stay nil until the owning Database resolves
// them; the name fields are always set.
type Reference struct {
	SequenceValue         int
	LocalColumnName       string
	ForeignColumnName     string
	LocalColumn           *Column
	ForeignColumn         *Column
	InsertableOrUpdatable bool
}

// NewReference creates an unresolved reference.
func NewReference(sequence int, localColumn, foreignColumn string) *Reference {
	return &Reference{
		SequenceValue:         sequence,
		LocalColumnName:       localColumn,
		ForeignColumnName:     foreignColumn,
		InsertableOrUpdatable: true,
	}
}

// Equal compares references by their column name pair.
func (r *Reference) Equal(o *Reference) bool {
	if r == nil || o == nil {
		return r == o
	}
	return r.LocalColumnName == o.LocalColumnName && r.ForeignColumnName == o.ForeignColumnName
}

// Resolved reports whether both column links are set.
func (r *Reference) Resolved() bool {
	return r.LocalColumn != nil && r.ForeignColumn != nil
}

// ForeignKey is a named constraint grouping one or more references to a
// foreign table.
type ForeignKey struct {
	Name              string
	References        []*Reference
	ForeignTableName  string
	ForeignSchemaName string
	ForeignTable      *Table
	KeySequence       int
	OnUpdate          Action
	OnDelete          Action
}

// NewForeignKey creates an unresolved foreign key.
func NewForeignKey(name, foreignSchema, foreignTable string) *ForeignKey {
	return &ForeignKey{
		Name:              name,
		ForeignTableName:  foreignTable,
		ForeignSchemaName: foreignSchema,
		OnUpdate:          ActionNone,
		OnDelete:          ActionNone,
	}
}

// AddReference adds r unless an equal reference is already present.
// References stay ordered by sequence value.
func (fk *ForeignKey) AddReference(r *Reference) {
	for _, existing := range fk.References {
		if existing.Equal(r) {
			return
		}
	}
	fk.References = append(fk.References, r)
	sort.SliceStable(fk.References, func(i, j int) bool {
		return fk.References[i].SequenceValue < fk.References[j].SequenceValue
	})
}

// Resolved reports whether the foreign table has been linked.
func (fk *ForeignKey) Resolved() bool {
	return fk.ForeignTable != nil
}

// Composite reports whether the key spans more than one column.
func (fk *ForeignKey) Composite() bool {
	return len(fk.References) > 1
}

// LocalColumnNames returns the local column names in key order.
func (fk *ForeignKey) LocalColumnNames() []string {
	names := make([]string, len(fk.References))
	for i, r := range fk.References {
		names[i] = r.LocalColumnName
	}
	return names
}

// ForeignColumnNames returns the foreign column names in key order.
func (fk *ForeignKey) ForeignColumnNames() []string {
	names := make([]string, len(fk.References))
	for i, r := range fk.References {
		names[i] = r.ForeignColumnName
	}
	return names
}
