package leave

import (
	"testing"

	"github.com/cmlabs-hris/workforce-engine/internal/pkg/validator"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateRequest_Parse(t *testing.T) {
	req := CreateRequest{EmployeeID: "emp-1", Type: TypeAnnual, StartDate: "2024-03-04", EndDate: "2024-03-05"}
	start, end, err := req.Parse()
	require.NoError(t, err)
	assert.Equal(t, 4, start.Day())
	assert.Equal(t, 5, end.Day())

	var errs validator.ValidationErrors
	_, _, err = (&CreateRequest{Type: "vacation", StartDate: "2024-03-05", EndDate: "2024-03-04"}).Parse()
	require.ErrorAs(t, err, &errs)
	assert.ElementsMatch(t, []string{"employee_id", "leave_type", "end_date"}, keys(errs.ToMap()))
}

func TestRejectRequest_RequiresReason(t *testing.T) {
	var errs validator.ValidationErrors
	require.ErrorAs(t, (&RejectRequest{Reason: " "}).Validate(), &errs)
	assert.Equal(t, "reason is required", errs.ToMap()["reason"])

	assert.NoError(t, (&RejectRequest{Reason: "team is short"}).Validate())
}

func TestListRequest_ToFilter(t *testing.T) {
	filter, err := ListRequest{EmployeeID: " emp-1 ", Status: "pending", Year: "2024"}.ToFilter()
	require.NoError(t, err)
	require.NotNil(t, filter.EmployeeID)
	assert.Equal(t, "emp-1", *filter.EmployeeID)
	require.NotNil(t, filter.Year)
	assert.Equal(t, 2024, *filter.Year)

	var errs validator.ValidationErrors
	_, err = ListRequest{Status: "done", Year: "24"}.ToFilter()
	require.ErrorAs(t, err, &errs)
	assert.Equal(t, map[string]string{
		"status": "status is invalid",
		"year":   "year must be a 4 digit number",
	}, errs.ToMap())
}

func keys(m map[string]string) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	return out
}
