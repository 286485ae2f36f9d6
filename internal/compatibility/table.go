// Package compatibility holds the donor-to-recipient blood compatibility
// table used to match requests with donors.
package compatibility

import "jeevandhara/internal/models"

// recipients maps a donor's group to the groups that may receive it.
var recipients = map[models.BloodGroup][]models.BloodGroup{
	models.APositive:  {models.APositive, models.ABPositive},
	models.ANegative:  {models.APositive, models.ANegative, models.ABPositive, models.ABNegative},
	models.BPositive:  {models.BPositive, models.ABPositive},
	models.BNegative:  {models.BPositive, models.BNegative, models.ABPositive, models.ABNegative},
	models.ABPositive: {models.ABPositive},
	models.ABNegative: {models.ABPositive, models.ABNegative},
	models.OPositive:  {models.OPositive, models.APositive, models.BPositive, models.ABPositive},
	models.ONegative: {
		models.APositive, models.ANegative, models.BPositive, models.BNegative,
		models.ABPositive, models.ABNegative, models.OPositive, models.ONegative,
	},
}

// donors is the inverse of recipients.
var donors = invert(recipients)

func invert(table map[models.BloodGroup][]models.BloodGroup) map[models.BloodGroup][]models.BloodGroup {
	out := make(map[models.BloodGroup][]models.BloodGroup, len(table))
	for _, donor := range models.BloodGroups {
		for _, recipient := range table[donor] {
			out[recipient] = append(out[recipient], donor)
		}
	}
	return out
}

// RecipientsOf returns the groups a donor of group g can give to. Unknown
// groups yield an empty set.
func RecipientsOf(g models.BloodGroup) []models.BloodGroup {
	return clone(recipients[g])
}

// DonorsFor returns the groups that can give to a recipient of group g.
func DonorsFor(g models.BloodGroup) []models.BloodGroup {
	return clone(donors[g])
}

// CanDonate reports whether donor blood may be given to recipient.
func CanDonate(donor, recipient models.BloodGroup) bool {
	for _, g := range recipients[donor] {
		if g == recipient {
			return true
		}
	}
	return false
}

func clone(in []models.BloodGroup) []models.BloodGroup {
	out := make([]models.BloodGroup, len(in))
	copy(out, in)
	return out
}
