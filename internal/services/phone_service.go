package services

import (
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/nyaruka/phonenumbers"

	"phoneverifier/internal/apperr"
)

const (
	ProviderBeOn   = "beon"
	ProviderVonage = "vonage"
)

var (
	e164Re      = regexp.MustCompile(`^\+[0-9]{10,15}$`)
	separatorRe = regexp.MustCompile(`[\s\-.()]`)
	digitsRe    = regexp.MustCompile(`^[0-9]{1,4}$`)
)

// PhoneValidation is the outcome of ValidatePhone.
type PhoneValidation struct {
	IsValid         bool   `json:"is_valid"`
	FormattedNumber string `json:"formatted_number"`
	CountryISO2     string `json:"country_iso2"`
}

type route struct {
	prefix   string
	provider string
}

// PhoneService normalises numbers and picks the SMS provider for them.
type PhoneService struct {
	routes          []route
	defaultProvider string
}

// DefaultRoutes sends Egyptian numbers through BeOn.
func DefaultRoutes() map[string]string {
	return map[string]string{"+20": ProviderBeOn}
}

func NewPhoneService(routes map[string]string, defaultProvider string) *PhoneService {
	if routes == nil {
		routes = DefaultRoutes()
	}
	if defaultProvider == "" {
		defaultProvider = ProviderVonage
	}
	s := &PhoneService{defaultProvider: defaultProvider}
	for p, name := range routes {
		if !strings.HasPrefix(p, "+") {
			p = "+" + p
		}
		s.routes = append(s.routes, route{prefix: p, provider: strings.ToLower(name)})
	}
	// самый длинный префикс первым
	sort.Slice(s.routes, func(i, j int) bool {
		if len(s.routes[i].prefix) != len(s.routes[j].prefix) {
			return len(s.routes[i].prefix) > len(s.routes[j].prefix)
		}
		return s.routes[i].prefix < s.routes[j].prefix
	})
	return s
}

// ValidatePhone normalises phoneNumber to "+<digits>". countryCode is either
// an ISO-2 region ("EG") or a dialing code ("20", "+20") and is only used
// when the number carries no international prefix.
func (s *PhoneService) ValidatePhone(phoneNumber, countryCode string) (PhoneValidation, error) {
	number := separatorRe.ReplaceAllString(strings.TrimSpace(phoneNumber), "")
	countryCode = strings.TrimSpace(countryCode)

	if strings.HasPrefix(number, "00") {
		number = "+" + number[2:]
	}
	if !strings.HasPrefix(number, "+") {
		dial := dialingCode(countryCode)
		if dial == "" {
			return PhoneValidation{}, apperr.ErrInvalidPhoneFormat
		}
		number = "+" + dial + strings.TrimPrefix(number, "0")
	}
	if !e164Re.MatchString(number) {
		return PhoneValidation{}, apperr.ErrInvalidPhoneFormat
	}

	return PhoneValidation{
		IsValid:         true,
		FormattedNumber: number,
		CountryISO2:     regionFor(number, countryCode),
	}, nil
}

// SelectSMSProvider returns the provider of the longest matching route.
func (s *PhoneService) SelectSMSProvider(formattedNumber string) string {
	for _, r := range s.routes {
		if strings.HasPrefix(formattedNumber, r.prefix) {
			return r.provider
		}
	}
	return s.defaultProvider
}

func dialingCode(countryCode string) string {
	cc := strings.TrimPrefix(countryCode, "+")
	if digitsRe.MatchString(cc) {
		return cc
	}
	if len(cc) == 2 {
		if n := phonenumbers.GetCountryCodeForRegion(strings.ToUpper(cc)); n > 0 {
			return strconv.Itoa(n)
		}
	}
	return ""
}

func regionFor(number, countryCode string) string {
	if num, err := phonenumbers.Parse(number, ""); err == nil {
		if region := phonenumbers.GetRegionCodeForNumber(num); region != "" && region != "ZZ" {
			return region
		}
	}
	if len(countryCode) == 2 && !digitsRe.MatchString(countryCode) {
		return strings.ToUpper(countryCode)
	}
	return ""
}
