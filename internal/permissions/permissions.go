// Package permissions decides whether a caller may act on an entity.
//
// Every entity declares who is responsible for it through Ownership: either
// a direct owner, or a named relation whose (already loaded) entity has a
// direct owner. Resolution never looks deeper than that one relation.
package permissions

// Role is the account role stored on a user.
type Role string

const (
	RoleAdmin  Role = "ADMIN"
	RoleSeller Role = "SELLER"
	RoleUser   Role = "USER"
)

func (r Role) Valid() bool {
	switch r {
	case RoleAdmin, RoleSeller, RoleUser:
		return true
	}
	return false
}

// Identity is the authenticated caller, passed explicitly into every check.
type Identity struct {
	UserID      int64
	Role        Role
	IsStaff     bool
	IsSuperuser bool
	IsActive    bool
}

func (id Identity) Authenticated() bool {
	return id.UserID != 0 && id.IsActive
}

func (id Identity) privileged() bool {
	return id.IsStaff || id.IsSuperuser
}

// Relation names the entity an indirectly owned entity borrows its owner from.
type Relation string

const (
	RelationOrder   Relation = "order"
	RelationShop    Relation = "shop"
	RelationProduct Relation = "product"
)

// Ownership is either a direct owner or a relation to follow.
type Ownership struct {
	ownerID int64
	via     Relation
}

func OwnedBy(userID int64) Ownership { return Ownership{ownerID: userID} }

func OwnedVia(rel Relation) Ownership { return Ownership{via: rel} }

// Direct reports the owner when the ownership is direct.
func (o Ownership) Direct() (int64, bool) {
	if o.via != "" || o.ownerID == 0 {
		return 0, false
	}
	return o.ownerID, true
}

// Via reports the relation when the ownership is indirect.
func (o Ownership) Via() (Relation, bool) {
	return o.via, o.via != ""
}

// Ownable is implemented by every entity that can be the target of a check.
type Ownable interface {
	Ownership() Ownership
}

// Related is implemented by indirectly owned entities. It returns the loaded
// entity for rel, or nil when that relation is not loaded.
type Related interface {
	Related(rel Relation) Ownable
}

// ResponsibleUser returns the user accountable for target.
func ResponsibleUser(target Ownable) (int64, bool) {
	if target == nil {
		return 0, false
	}
	own := target.Ownership()
	if id, ok := own.Direct(); ok {
		return id, true
	}

	rel, ok := own.Via()
	if !ok {
		return 0, false
	}
	r, ok := target.(Related)
	if !ok {
		return 0, false
	}
	parent := r.Related(rel)
	if parent == nil {
		return 0, false
	}
	return parent.Ownership().Direct()
}

// Authorize reports whether id may act on target. Staff and superusers may
// act on anything; everyone else only on what they are responsible for.
func Authorize(id Identity, target Ownable) bool {
	if id.privileged() {
		return true
	}
	owner, ok := ResponsibleUser(target)
	return ok && id.UserID != 0 && owner == id.UserID
}

// IsSellerOrAdmin gates creation endpoints where no object exists yet.
func IsSellerOrAdmin(id Identity) bool {
	return id.Authenticated() && (id.Role == RoleSeller || id.privileged())
}

// IsAdmin gates list-all and back-office endpoints.
func IsAdmin(id Identity) bool {
	return id.Authenticated() && id.privileged()
}
