package services

import "github.com/acturus1/Web-project-yandex/models"

// Viewer identifies the current caller. It is resolved once at the HTTP
// boundary and passed into every operation; services never consult any
// ambient session state.
type Viewer struct {
	Authenticated bool
	UserID        uint
	Username      string
	IsAdmin       bool
}

// Anonymous is the viewer used for requests without a valid session.
var Anonymous = Viewer{}

// AccessPolicy decides what a viewer may do with an article. It replaces the
// scattered inline author checks of the legacy app with one object invoked at
// the boundary before the operation runs.
type AccessPolicy struct{}

// CanView reports whether the viewer may read the article. Restricted
// articles require any authenticated account.
func (AccessPolicy) CanView(a *models.Article, v Viewer) bool {
	return !a.RegisteredOnly || v.Authenticated
}

// CanEdit reports whether the viewer may change the article. Only the author
// may; admins deliberately do not get to rewrite another author's attribution.
func (AccessPolicy) CanEdit(a *models.Article, v Viewer) bool {
	return v.Authenticated && v.UserID == a.AuthorID
}

// CanDelete reports whether the viewer may delete the article. Authors and
// admins may.
func (AccessPolicy) CanDelete(a *models.Article, v Viewer) bool {
	return v.Authenticated && (v.UserID == a.AuthorID || v.IsAdmin)
}
