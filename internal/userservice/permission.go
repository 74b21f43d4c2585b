package userservice

// IsValid reports whether the role is one of the known roles.
func (r Role) IsValid() bool {
	switch r {
	case RoleReader, RoleBlogger, RoleAdmin:
		return true
	}
	return false
}

// CanAuthor reports whether the role may create posts. Every role except
// reader is an authoring role.
func (r Role) CanAuthor() bool {
	return r.IsValid() && r != RoleReader
}

// CanModerate reports whether the role may act on content it does not own.
func (r Role) CanModerate() bool {
	return r == RoleAdmin
}

func (u *User) IsAnonymous() bool {
	return u == &AnonymousUser
}

// IsOwner reports whether the user owns the resource identified by ownerID.
func (u *User) IsOwner(ownerID int) bool {
	return u.ID == ownerID
}

// CanModify is the composite rule used by update/delete handlers: owner or
// moderator.
func (u *User) CanModify(ownerID int) bool {
	return u.IsOwner(ownerID) || u.Role.CanModerate()
}
