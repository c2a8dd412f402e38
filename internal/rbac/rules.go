package rbac

// Default policy for the admin portal. "staff" is the read-only enrollment
// office role; "admin" can additionally reset attempts and export records.
var RolePermissions = map[string][]string{
	"staff": {
		"students:list",
		"students:view",
		"reports:view",
		"documents:view",
	},
	"admin": {
		"*", // everything, including attempts:reset and records:export
	},
}
