package ast

type (
	NodeID      uint32
	ExprID      uint32
	ComponentID uint32
	MemberID    uint32
	PayloadID   uint32
)

const (
	NoNodeID      NodeID      = 0
	NoExprID      ExprID      = 0
	NoComponentID ComponentID = 0
	NoMemberID    MemberID    = 0
	NoPayloadID   PayloadID   = 0
)

func (id NodeID) IsValid() bool      { return id != NoNodeID }
func (id ExprID) IsValid() bool      { return id != NoExprID }
func (id ComponentID) IsValid() bool { return id != NoComponentID }
func (id MemberID) IsValid() bool    { return id != NoMemberID }
func (id PayloadID) IsValid() bool   { return id != NoPayloadID }
