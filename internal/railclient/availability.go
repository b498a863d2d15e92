package railclient

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"train-booking-system/internal/models"
)

// AvailabilityQuery is one availability poll's parameters.
type AvailabilityQuery struct {
	TrainDate     string
	FromStation   string
	ToStation     string
	Seats         []models.SeatPreference
	IncludeTrains []string
	ExcludeTrains []string
	Quantity      int
}

// QueryAvailability returns the trains that currently satisfy the query, in
// server order, filtered to the requested seat classes and train-number
// include/exclude lists. An empty result is a normal state, not an error.
func (c *Client) QueryAvailability(ctx context.Context, sess *models.Session, q AvailabilityQuery) ([]models.Candidate, error) {
	form := url.Values{}
	form.Set("orderRequest.train_date", toGBK(q.TrainDate))
	form.Set("orderRequest.from_station_telecode", q.FromStation)
	form.Set("orderRequest.to_station_telecode", q.ToStation)
	form.Set("orderRequest.ticket_num", strconv.Itoa(q.Quantity))
	form.Set("orderRequest.seat_types", joinSeatCodes(q.Seats))
	if len(q.IncludeTrains) > 0 {
		form.Set("orderRequest.include_train", strings.Join(q.IncludeTrains, ","))
	}
	if len(q.ExcludeTrains) > 0 {
		form.Set("orderRequest.exclude_train", strings.Join(q.ExcludeTrains, ","))
	}

	env, err := c.call(ctx, sess, "/queryLeftTicketAction.do?method=queryLeftTicket", form)
	if err != nil {
		return nil, err
	}
	if !env.Continue {
		return nil, fmt.Errorf("availability query rejected: %s", env.Message)
	}

	var data struct {
		Trains []struct {
			models.Candidate
			SeatCounts map[string]string `json:"seatCounts"`
		} `json:"trains"`
	}
	if err := json.Unmarshal(env.Data, &data); err != nil {
		return nil, fmt.Errorf("failed to decode availability: %w", err)
	}

	// The request carries the filter condition, but the filters are applied
	// here regardless: the service treats them as advisory.
	var allows []models.Candidate
	for _, t := range data.Trains {
		if !trainAllowed(t.TrainCode, q.IncludeTrains, q.ExcludeTrains) {
			continue
		}
		canBuy := buyableSeats(t.SeatCounts, q.Seats, q.Quantity)
		if len(canBuy) == 0 {
			continue
		}
		cand := t.Candidate
		cand.CanBuySeats = canBuy
		allows = append(allows, cand)
	}
	return allows, nil
}

func joinSeatCodes(prefs []models.SeatPreference) string {
	codes := make([]string, 0, len(prefs))
	for _, p := range prefs {
		codes = append(codes, p.Code)
	}
	return strings.Join(codes, ",")
}

func trainAllowed(code string, include, exclude []string) bool {
	if len(include) > 0 && !containsTrain(include, code) {
		return false
	}
	return !containsTrain(exclude, code)
}

func containsTrain(list []string, code string) bool {
	for _, entry := range list {
		if strings.EqualFold(strings.TrimSpace(entry), code) {
			return true
		}
	}
	return false
}

// buyableSeats returns the requested seat classes with enough remaining
// tickets, preserving preference order. The count field is either a number
// or the literal "有" (plenty).
func buyableSeats(counts map[string]string, prefs []models.SeatPreference, quantity int) []string {
	var out []string
	for _, pref := range prefs {
		raw, ok := counts[pref.Code]
		if !ok {
			continue
		}
		if raw == "有" {
			out = append(out, pref.Code)
			continue
		}
		n, err := strconv.Atoi(raw)
		if err == nil && n >= quantity {
			out = append(out, pref.Code)
		}
	}
	return out
}
