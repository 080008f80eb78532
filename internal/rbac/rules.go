package rbac

const (
	RoleStudent = "student"
	RoleTeacher = "teacher"
	RoleAdmin   = "admin"
)

// Simple default policy. Expand as needed.
var RolePermissions = map[string][]string{
	RoleStudent: {
		"quiz:view",
		"attempt:create",
		"attempt:save",
		"attempt:submit",
		"attempt:view-own",
	},
	RoleTeacher: {
		"quiz:create",
		"quiz:view",
		"quiz:view-key",
		"attempt:view-all",
		"gradebook:view",
	},
	RoleAdmin: {
		"*", // everything
	},
}

func ValidRole(role string) bool {
	_, ok := RolePermissions[role]
	return ok
}
