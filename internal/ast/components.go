package ast

import (
	"tplcheck/internal/source"
)

// ComponentData is one checked declaration: a component class and its template.
type ComponentData struct {
	Name        source.StringID
	File        source.FileID // template file
	Span        source.Span
	Template    []NodeID
	HasTemplate bool
	Members     []MemberID
}

// Member is a class member visible from the template through the implicit receiver.
type Member struct {
	Name           source.StringID
	Span           source.Span
	Signal         bool
	Deprecated     bool
	DeprecationMsg source.StringID
}

type Components struct {
	Arena   *Arena[ComponentData]
	Members *Arena[Member]
}

func NewComponents(capHint uint) *Components {
	if capHint == 0 {
		capHint = 1 << 4
	}
	return &Components{
		Arena:   NewArena[ComponentData](capHint),
		Members: NewArena[Member](capHint * 8),
	}
}

func (c *Components) New(data ComponentData) ComponentID {
	return ComponentID(c.Arena.Allocate(data))
}

func (c *Components) Get(id ComponentID) *ComponentData {
	return c.Arena.Get(uint32(id))
}

func (c *Components) NewMember(m Member) MemberID {
	return MemberID(c.Members.Allocate(m))
}

func (c *Components) Member(id MemberID) *Member {
	return c.Members.Get(uint32(id))
}

// AddMember allocates m and attaches it to decl.
func (c *Components) AddMember(decl ComponentID, m Member) MemberID {
	comp := c.Get(decl)
	if comp == nil {
		return NoMemberID
	}
	id := c.NewMember(m)
	comp.Members = append(comp.Members, id)
	return id
}

// SetTemplate installs the root node sequence of decl. A nil roots slice still marks
// the component as having a (blank) template.
func (c *Components) SetTemplate(decl ComponentID, roots []NodeID) {
	comp := c.Get(decl)
	if comp == nil {
		return
	}
	comp.Template = append([]NodeID(nil), roots...)
	comp.HasTemplate = true
}

// IDs lists every allocated component in allocation order.
func (c *Components) IDs() []ComponentID {
	n := c.Arena.Len()
	out := make([]ComponentID, 0, n)
	for i := uint32(1); i <= n; i++ {
		out = append(out, ComponentID(i))
	}
	return out
}
