package domain

type IdentityKind int

const (
	IdentityAnonymous IdentityKind = iota
	IdentityAdmin
	IdentityAdminImpersonating
	IdentityCustomer
)

func (k IdentityKind) String() string {
	switch k {
	case IdentityAdmin:
		return "admin"
	case IdentityAdminImpersonating:
		return "admin_impersonating"
	case IdentityCustomer:
		return "customer"
	default:
		return "anonymous"
	}
}

// EffectiveIdentity is the role and customer context a request runs under.
// Gates and permission checks switch on Kind instead of combining booleans.
type EffectiveIdentity struct {
	Kind       IdentityKind
	UserID     string
	CustomerID string
}

func IdentityOf(s *Session) EffectiveIdentity {
	if s == nil {
		return EffectiveIdentity{Kind: IdentityAnonymous}
	}

	switch s.User.Role {
	case RoleAdmin:
		if s.Impersonation != nil {
			return EffectiveIdentity{
				Kind:       IdentityAdminImpersonating,
				UserID:     s.User.ID,
				CustomerID: s.Impersonation.CustomerID,
			}
		}
		return EffectiveIdentity{Kind: IdentityAdmin, UserID: s.User.ID}
	case RoleCustomer:
		customerID, _ := s.User.Customer()
		return EffectiveIdentity{Kind: IdentityCustomer, UserID: s.User.ID, CustomerID: customerID}
	default:
		return EffectiveIdentity{Kind: IdentityAnonymous}
	}
}

func (i EffectiveIdentity) IsAuthenticated() bool {
	return i.Kind != IdentityAnonymous
}

// IsAdmin reports the raw role, impersonating or not.
func (i EffectiveIdentity) IsAdmin() bool {
	return i.Kind == IdentityAdmin || i.Kind == IdentityAdminImpersonating
}

func (i EffectiveIdentity) IsViewingAsAdmin() bool {
	return i.Kind == IdentityAdmin
}

// ShowsAdminFeatures is governed by whether the admin is impersonating, not
// by the raw role.
func (i EffectiveIdentity) ShowsAdminFeatures() bool {
	return i.IsViewingAsAdmin()
}

// ActsAsCustomer is true for customers and for admins impersonating one.
func (i EffectiveIdentity) ActsAsCustomer() bool {
	return i.Kind == IdentityCustomer || i.Kind == IdentityAdminImpersonating
}

func (i EffectiveIdentity) ActiveCustomerID() (string, bool) {
	if i.CustomerID == "" {
		return "", false
	}
	return i.CustomerID, true
}
