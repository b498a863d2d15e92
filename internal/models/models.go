package models

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// Run stages
const (
	StageUnauthenticated = "UNAUTHENTICATED"
	StageAuthenticated   = "AUTHENTICATED"
	StageEligible        = "ELIGIBLE"
	StagePolling         = "POLLING"
	StageSubmitting      = "SUBMITTING"
	StageTokenFetched    = "TOKEN_FETCHED"
	StageChecking        = "CHECKING"
	StageConfirming      = "CONFIRMING"
	StageWaiting         = "WAITING"
	StageCompleted       = "COMPLETED"
)

// Run outcomes
const (
	OutcomeBooked           = "BOOKED"
	OutcomeNoAvailability   = "NO_AVAILABILITY"
	OutcomeRejected         = "REJECTED"
	OutcomeAborted          = "ABORTED"
	OutcomeTransientFailure = "TRANSIENT_FAILURE"
)

// CAPTCHA resolution modes
const (
	CaptchaAuto        = "AUTO"
	CaptchaInteractive = "INTERACTIVE"
)

// Passenger identifies one traveler as registered with the ticketing service.
type Passenger struct {
	Name     string `json:"name"`
	IDType   string `json:"idType"`
	IDNumber string `json:"idNumber"`
}

func (p Passenger) String() string {
	return fmt.Sprintf("%s(%s)", p.Name, p.IDNumber)
}

// SeatPreference is one seat class the user is willing to book.
type SeatPreference struct {
	Code string `json:"code"`
	Name string `json:"name"`
}

var seatNames = map[string]string{
	"9": "business",
	"M": "first-class",
	"O": "second-class",
	"4": "soft-sleeper",
	"3": "hard-sleeper",
	"2": "soft-seat",
	"1": "hard-seat",
	"W": "standing",
}

// ParsePassengers parses the configuration string "name,idType,idNumber;..."
// into an ordered passenger list. The idType defaults to "1" (national ID)
// when omitted.
func ParsePassengers(source string) ([]Passenger, error) {
	var passengers []Passenger
	for _, entry := range strings.Split(source, ";") {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}
		fields := strings.Split(entry, ",")
		if len(fields) == 2 {
			fields = []string{fields[0], "1", fields[1]}
		}
		if len(fields) < 3 {
			return nil, fmt.Errorf("invalid passenger entry %q", entry)
		}
		p := Passenger{
			Name:     strings.TrimSpace(fields[0]),
			IDType:   strings.TrimSpace(fields[1]),
			IDNumber: strings.TrimSpace(fields[2]),
		}
		if p.Name == "" || p.IDNumber == "" {
			return nil, fmt.Errorf("invalid passenger entry %q", entry)
		}
		passengers = append(passengers, p)
	}
	if len(passengers) == 0 {
		return nil, errors.New("no passengers configured")
	}
	return passengers, nil
}

// ParseSeats parses the comma-separated seat-class code string into an
// ordered preference list.
func ParseSeats(source string) ([]SeatPreference, error) {
	var seats []SeatPreference
	for _, code := range strings.Split(source, ",") {
		code = strings.TrimSpace(code)
		if code == "" {
			continue
		}
		name, ok := seatNames[code]
		if !ok {
			return nil, fmt.Errorf("unknown seat class %q", code)
		}
		seats = append(seats, SeatPreference{Code: code, Name: name})
	}
	if len(seats) == 0 {
		return nil, errors.New("no seat preferences configured")
	}
	return seats, nil
}

// SeatDescription renders a preference list for log output.
func SeatDescription(seats []SeatPreference) string {
	names := make([]string, 0, len(seats))
	for _, s := range seats {
		names = append(names, s.Name)
	}
	return strings.Join(names, "/")
}

// Session is the opaque authentication context for one run. It is
// serializable so it can travel between workflow and activities, and it is
// exclusively owned by a single run.
type Session struct {
	Username string   `json:"username"`
	Cookies  []string `json:"cookies"`
	SignedIn bool     `json:"signedIn"`
}

// Candidate is one bookable (train, seat classes) combination returned by an
// availability query, together with the route-internal tokens the order
// endpoints need later. Immutable once produced.
type Candidate struct {
	TrainCode     string   `json:"trainCode"`
	TrainNo       string   `json:"trainNo"`
	Secret        string   `json:"secret"`
	SeatTypes     string   `json:"seatTypes"`
	LocationCode  string   `json:"locationCode"`
	LeftTicketStr string   `json:"leftTicketStr"`
	CanBuySeats   []string `json:"canBuySeats"`
}

// OrderToken is the short-lived pair binding one submission attempt to its
// confirmation. Never reused across candidates.
type OrderToken struct {
	SubmitToken string `json:"submitToken"`
	OrderKey    string `json:"orderKey"`
}

// OrderRecord is one entry from the incomplete-orders listing.
type OrderRecord struct {
	OrderID   string `json:"orderId"`
	TrainCode string `json:"trainCode"`
	StartTime string `json:"startTime"`
	From      string `json:"from"`
	To        string `json:"to"`
}

// Report summarizes a successful booking for persistence.
type Report struct {
	Username string        `json:"username"`
	OrderID  string        `json:"orderId"`
	Orders   []OrderRecord `json:"orders"`
}

// BookingInput is the immutable run configuration handed to the workflow.
type BookingInput struct {
	RunID         string           `json:"runId"`
	Username      string           `json:"username"`
	Passengers    []Passenger      `json:"passengers"`
	Seats         []SeatPreference `json:"seats"`
	TrainDate     string           `json:"trainDate"`
	FromStation   string           `json:"fromStation"`
	ToStation     string           `json:"toStation"`
	IncludeTrains []string         `json:"includeTrains,omitempty"`
	ExcludeTrains []string         `json:"excludeTrains,omitempty"`
	QueryInterval time.Duration    `json:"queryInterval"`
	CaptchaMode   string           `json:"captchaMode"`
}

// Validate enforces the construction rules: non-empty passengers and seat
// preferences, non-blank date and stations, query interval of at least one
// second.
func (in *BookingInput) Validate() error {
	if len(in.Passengers) == 0 {
		return errors.New("no passengers")
	}
	if len(in.Seats) == 0 {
		return errors.New("no seat preferences")
	}
	if strings.TrimSpace(in.TrainDate) == "" {
		return errors.New("travel date not set")
	}
	if strings.TrimSpace(in.FromStation) == "" {
		return errors.New("origin station not set")
	}
	if strings.TrimSpace(in.ToStation) == "" {
		return errors.New("destination station not set")
	}
	if in.QueryInterval < time.Second {
		return fmt.Errorf("query interval %v below the 1s minimum", in.QueryInterval)
	}
	switch in.CaptchaMode {
	case CaptchaAuto, CaptchaInteractive:
	default:
		return fmt.Errorf("unknown captcha mode %q", in.CaptchaMode)
	}
	return nil
}

// BookingState is the workflow's queryable run state.
type BookingState struct {
	RunID           string    `json:"runId"`
	Username        string    `json:"username"`
	Stage           string    `json:"stage"`
	Outcome         string    `json:"outcome,omitempty"`
	Reason          string    `json:"reason,omitempty"`
	OrderID         string    `json:"orderId,omitempty"`
	CandidateTrain  string    `json:"candidateTrain,omitempty"`
	CandidatesFound int       `json:"candidatesFound"`
	Queries         int       `json:"queries"`
	WaitSeconds     int       `json:"waitSeconds"`
	CaptchaImage    string    `json:"captchaImage,omitempty"`
	StartedAt       time.Time `json:"startedAt"`
}

// BookingResult is the workflow output: exactly one outcome per run.
type BookingResult struct {
	Outcome string  `json:"outcome"`
	Reason  string  `json:"reason,omitempty"`
	OrderID string  `json:"orderId,omitempty"`
	Report  *Report `json:"report,omitempty"`
}

// PassengerTicketStr builds the passenger-ticket descriptor the integrity
// check and confirmation endpoints expect: one
// "seat,0,ticketType,name,idType,idNumber,mobile,N" segment per passenger,
// joined by underscores. The seat code is resolved against the train's
// advertised seat-type codes, not taken from the preference verbatim.
func PassengerTicketStr(passengers []Passenger, seat, seatTypes string) string {
	code := ResolveSeatCode(seat, seatTypes)
	segments := make([]string, 0, len(passengers))
	for _, p := range passengers {
		segments = append(segments, strings.Join([]string{
			code, "0", "1", p.Name, p.IDType, p.IDNumber, "", "N",
		}, ","))
	}
	return strings.Join(segments, "_")
}

// ResolveSeatCode maps the chosen seat class through the train's seat-type
// code list. A standing ticket has no wire code of its own; it is charged as
// the train's base class, the first advertised code.
func ResolveSeatCode(seat, seatTypes string) string {
	if seat != "W" {
		return seat
	}
	for _, code := range strings.Split(seatTypes, ",") {
		if code = strings.TrimSpace(code); code != "" {
			return code
		}
	}
	return seat
}

// API request/response models

type StartRunRequest struct {
	Passengers    string `json:"passengers"`
	Seats         string `json:"seats"`
	TrainDate     string `json:"trainDate"`
	From          string `json:"from"`
	To            string `json:"to"`
	IncludeTrains string `json:"includeTrains,omitempty"`
	ExcludeTrains string `json:"excludeTrains,omitempty"`
	QueryInterval int    `json:"queryIntervalMs,omitempty"`
	CaptchaMode   string `json:"captchaMode,omitempty"`
}

type StartRunResponse struct {
	RunID      string `json:"runId"`
	WorkflowID string `json:"workflowId"`
	Stage      string `json:"stage"`
}

type RunStatusResponse struct {
	RunID           string `json:"runId"`
	Stage           string `json:"stage"`
	Outcome         string `json:"outcome,omitempty"`
	Reason          string `json:"reason,omitempty"`
	OrderID         string `json:"orderId,omitempty"`
	CandidateTrain  string `json:"candidateTrain,omitempty"`
	CandidatesFound int    `json:"candidatesFound"`
	Queries         int    `json:"queries"`
	WaitSeconds     int    `json:"waitSeconds"`
	CaptchaImage    string `json:"captchaImage,omitempty"`
}

type SubmitCaptchaRequest struct {
	Code string `json:"code"`
}
