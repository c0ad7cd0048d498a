package mediaflow

import "github.com/google/uuid"

// ResolveTarget picks the single collection target from a completion
// request. When several ids are supplied the first match in the fixed order
// post, group, community, domain wins. Point attachment has its own path
// and is never resolved here.
func ResolveTarget(req CompleteRequest) (CollectionTarget, error) {
	switch {
	case req.PostID != nil:
		return CollectionTarget{Kind: CollectionPost, ID: *req.PostID}, nil
	case req.GroupID != nil:
		return CollectionTarget{Kind: CollectionGroup, ID: *req.GroupID}, nil
	case req.CommunityID != nil:
		return CollectionTarget{Kind: CollectionCommunity, ID: *req.CommunityID}, nil
	case req.DomainID != nil:
		return CollectionTarget{Kind: CollectionDomain, ID: *req.DomainID}, nil
	default:
		return CollectionTarget{}, ErrNoTarget
	}
}

// IsValid reports whether the kind is one of the known collection kinds.
func (k CollectionKind) IsValid() bool {
	switch k {
	case CollectionPost, CollectionGroup, CollectionCommunity, CollectionDomain, CollectionPoint:
		return true
	}
	return false
}

// Target is a convenience constructor.
func Target(kind CollectionKind, id uuid.UUID) CollectionTarget {
	return CollectionTarget{Kind: kind, ID: id}
}
