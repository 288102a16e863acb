package identity

type Permission string

const (
	// Attendance
	PermissionAttendanceRecordOwn Permission = "attendance.record_own"
	PermissionAttendanceViewAll   Permission = "attendance.view_all"

	// Leave
	PermissionLeaveCreate       Permission = "leave.create"
	PermissionLeaveViewOwn      Permission = "leave.view_own"
	PermissionLeaveViewAll      Permission = "leave.view_all"
	PermissionLeaveApprove      Permission = "leave.approve"
	PermissionLeaveEntitlements Permission = "leave.manage_entitlements"

	// Payroll
	PermissionPayrollViewAll Permission = "payroll.view_all"
	PermissionPayrollManage  Permission = "payroll.manage"
	PermissionPayrollApprove Permission = "payroll.approve"
	PermissionPayrollPay     Permission = "payroll.pay"

	// Events
	PermissionEventsSubscribe Permission = "events.subscribe"
)

// RolePermissions maps roles to their permissions
var RolePermissions = map[Role][]Permission{
	RoleOwner: {
		PermissionAttendanceRecordOwn,
		PermissionAttendanceViewAll,
		PermissionLeaveCreate,
		PermissionLeaveViewOwn,
		PermissionLeaveViewAll,
		PermissionLeaveApprove,
		PermissionLeaveEntitlements,
		PermissionPayrollViewAll,
		PermissionPayrollManage,
		PermissionPayrollApprove,
		PermissionPayrollPay,
		PermissionEventsSubscribe,
	},
	RoleHR: {
		PermissionAttendanceRecordOwn,
		PermissionAttendanceViewAll,
		PermissionLeaveCreate,
		PermissionLeaveViewOwn,
		PermissionLeaveViewAll,
		PermissionLeaveEntitlements,
		PermissionPayrollViewAll,
		PermissionPayrollManage,
		PermissionPayrollPay,
		PermissionEventsSubscribe,
	},
	RoleManager: {
		PermissionAttendanceRecordOwn,
		PermissionAttendanceViewAll,
		PermissionLeaveCreate,
		PermissionLeaveViewOwn,
		PermissionLeaveViewAll,
		PermissionLeaveApprove,
		PermissionPayrollViewAll,
		PermissionPayrollApprove,
		PermissionEventsSubscribe,
	},
	RoleEmployee: {
		PermissionAttendanceRecordOwn,
		PermissionLeaveCreate,
		PermissionLeaveViewOwn,
		PermissionEventsSubscribe,
	},
}

// HasPermission checks if a role has a specific permission
func HasPermission(role Role, permission Permission) bool {
	permissions, exists := RolePermissions[role]
	if !exists {
		return false
	}

	for _, p := range permissions {
		if p == permission {
			return true
		}
	}

	return false
}

// Authorize performs the capability check once and returns the actor the
// engine accepts.
func Authorize(userID, employeeID string, role Role, permission Permission) (Actor, error) {
	if userID == "" {
		return Actor{}, ErrMissingIdentity
	}
	if !HasPermission(role, permission) {
		return Actor{}, ErrInsufficientPermissions
	}
	return Actor{UserID: userID, EmployeeID: employeeID, Role: role, granted: permission}, nil
}
