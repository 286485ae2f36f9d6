package notifications

import (
	"fmt"
	"strconv"

	"jeevandhara/internal/models"
)

// Event types carried in Message.Data["type"].
const (
	EventNewRequest       = "new_blood_request"
	EventRequestAccepted  = "request_accepted"
	EventRequestFulfilled = "request_fulfilled"
	EventRequestCancelled = "request_cancelled"
	EventDonationComplete = "donation_complete"
	EventLowStock         = "low_stock_alert"
	EventEmergency        = "emergency_request"
)

// Message is a single notification, rendered once and fanned out to every
// recipient over push and the in-app channel.
type Message struct {
	Title string            `json:"title"`
	Body  string            `json:"body"`
	Data  map[string]string `json:"data"`
}

// Event returns the message type tag.
func (m Message) Event() string {
	return m.Data["type"]
}

// Recipient addresses one profile.
type Recipient struct {
	Kind models.UserKind
	ID   uint
}

// Target is a recipient plus its device token. An empty Token skips push
// but still delivers in-app.
type Target struct {
	Recipient
	Token string
}

func id(v uint) string { return strconv.FormatUint(uint64(v), 10) }

func orDefault(s, def string) string {
	if s == "" {
		return def
	}
	return s
}

func unitsOrOne(n int) int {
	if n < 1 {
		return 1
	}
	return n
}

// NewRequestMessage announces a fresh request to compatible donors. The body
// depends on who raised it.
func NewRequestMessage(req *models.BloodRequest, requesterKind models.UserKind, requesterName string) Message {
	name := orDefault(requesterName, "A patient")
	var body string
	switch requesterKind {
	case models.KindHospital:
		body = fmt.Sprintf("%s urgently needs %s blood. Can you help save a life?", name, req.BloodGroup)
	case models.KindBloodBank:
		body = fmt.Sprintf("%s needs %s blood donors. Your donation can help!", name, req.BloodGroup)
	default:
		where := orDefault(req.Location, orDefault(req.HospitalName, "nearby location"))
		body = fmt.Sprintf("%s blood needed at %s. %d unit(s) required urgently.", req.BloodGroup, where, unitsOrOne(req.Units))
	}
	return Message{
		Title: "🩸 Urgent Blood Request!",
		Body:  body,
		Data: map[string]string{
			"type":          EventNewRequest,
			"requestId":     id(req.ID),
			"bloodGroup":    string(req.BloodGroup),
			"requesterType": string(requesterKind),
		},
	}
}

// HospitalNeedMessage announces a hospital's donor-sourced request.
func HospitalNeedMessage(req *models.HospitalBloodRequest, hospitalName string) Message {
	name := orDefault(hospitalName, "Hospital")
	return Message{
		Title: "🩸 Urgent Blood Request!",
		Body:  fmt.Sprintf("%s urgently needs %s blood. Can you help save a life?", name, req.BloodGroup),
		Data: map[string]string{
			"type":          EventNewRequest,
			"requestId":     id(req.ID),
			"bloodGroup":    string(req.BloodGroup),
			"requesterType": string(models.KindHospital),
		},
	}
}

// RequestAcceptedMessage tells the requester a donor volunteered.
func RequestAcceptedMessage(req *models.BloodRequest, donor *models.Donor) Message {
	name := orDefault(donor.FullName, "A donor")
	return Message{
		Title: "✅ Donor Found!",
		Body: fmt.Sprintf("%s has volunteered to donate %s blood. Contact: %s",
			name, req.BloodGroup, orDefault(donor.Phone, "See details")),
		Data: map[string]string{
			"type":       EventRequestAccepted,
			"requestId":  id(req.ID),
			"donorId":    id(donor.ID),
			"donorName":  name,
			"donorPhone": donor.Phone,
		},
	}
}

// RequestFulfilledMessage tells the requester the donation happened.
func RequestFulfilledMessage(req *models.BloodRequest) Message {
	return Message{
		Title: "🎉 Request Fulfilled!",
		Body:  fmt.Sprintf("Your %s blood request has been fulfilled. Thank you for using Jeevan Dhara!", req.BloodGroup),
		Data: map[string]string{
			"type":      EventRequestFulfilled,
			"requestId": id(req.ID),
		},
	}
}

// RequestCancelledMessage tells the assigned donor the request was withdrawn.
func RequestCancelledMessage(req *models.BloodRequest, cancelledBy models.UserKind) Message {
	by := "the requester"
	switch cancelledBy {
	case models.KindHospital:
		by = "the hospital"
	case models.KindBloodBank:
		by = "the blood bank"
	}
	return Message{
		Title: "❌ Request Cancelled",
		Body:  fmt.Sprintf("The %s blood request has been cancelled by %s.", req.BloodGroup, by),
		Data: map[string]string{
			"type":      EventRequestCancelled,
			"requestId": id(req.ID),
		},
	}
}

// ThankYouMessage thanks a donor after a fulfilled request.
func ThankYouMessage(req *models.BloodRequest) Message {
	return Message{
		Title: "🙏 Thank You, Hero!",
		Body:  fmt.Sprintf("Your %s blood donation saved a life. You're a true hero!", req.BloodGroup),
		Data: map[string]string{
			"type":       EventDonationComplete,
			"requestId":  id(req.ID),
			"bloodGroup": string(req.BloodGroup),
		},
	}
}

// LowStockMessage warns a facility that a group fell under the threshold.
func LowStockMessage(group models.BloodGroup, units int) Message {
	return Message{
		Title: "⚠️ Low Blood Stock Alert",
		Body:  fmt.Sprintf("%s stock is critically low (%d units). Consider requesting donations.", group, units),
		Data: map[string]string{
			"type":       EventLowStock,
			"bloodGroup": string(group),
			"units":      strconv.Itoa(units),
		},
	}
}

// EmergencyMessage is broadcast to every hospital and blood bank.
func EmergencyMessage(requestID uint, group models.BloodGroup, units int, location string) Message {
	return Message{
		Title: "🚨 EMERGENCY Blood Request!",
		Body: fmt.Sprintf("%s blood needed URGENTLY at %s. %d units required.",
			group, orDefault(location, "nearby location"), unitsOrOne(units)),
		Data: map[string]string{
			"type":       EventEmergency,
			"requestId":  id(requestID),
			"bloodGroup": string(group),
			"priority":   "emergency",
		},
	}
}
