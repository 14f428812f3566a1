package models

// Plan is the entitlement tier attached to a license at issuance.
type Plan string

const (
	PlanPersonal     Plan = "personal"
	PlanProfessional Plan = "professional"
)

// DefaultDeviceCap is granted when a purchase event carries a plan tag we do
// not recognize. Unknown tags must never receive an elevated cap.
const DefaultDeviceCap = 1

// deviceCaps is the fixed plan-to-cap table. Caps are a property of the plan
// at issuance time; changing this table never mutates existing licenses.
var deviceCaps = map[Plan]int{
	PlanPersonal:     1,
	PlanProfessional: 3,
}

// DeviceCapFor maps a plan tag to its device cap. The second return reports
// whether the tag was recognized; callers log unrecognized tags as anomalies.
func DeviceCapFor(plan Plan) (int, bool) {
	if cap, ok := deviceCaps[plan]; ok {
		return cap, true
	}
	return DefaultDeviceCap, false
}
