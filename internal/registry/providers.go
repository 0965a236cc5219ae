package registry

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/Rana718/datagen/internal/types"
	"github.com/google/uuid"
)

const day = 24 * time.Hour

func text(f func(g *gen) string) func(*gen, Params) Generator {
	return func(g *gen, _ Params) Generator {
		return func() (any, error) { return f(g), nil }
	}
}

func number(f func(g *gen) float64) func(*gen, Params) Generator {
	return func(g *gen, _ Params) Generator {
		return func() (any, error) { return f(g), nil }
	}
}

// between draws a date uniformly in [from, to] at second precision.
func between(g *gen, from, to time.Time) time.Time {
	span := int64(to.Sub(from) / time.Second)
	if span <= 0 {
		return from.UTC().Truncate(time.Second)
	}
	offset := g.faker.Rand.Int63n(span + 1)
	return from.Add(time.Duration(offset) * time.Second).UTC().Truncate(time.Second)
}

// intBetween draws uniformly in [lo, hi]. Spans wider than Int63n accepts,
// up to the whole int64 range, are drawn from Uint64 by rejection.
func intBetween(g *gen, lo, hi int64) int64 {
	span := uint64(hi) - uint64(lo)
	if span < math.MaxInt64 {
		return lo + g.faker.Rand.Int63n(int64(span)+1)
	}
	if span == math.MaxUint64 {
		return int64(g.faker.Rand.Uint64())
	}
	limit := math.MaxUint64 - math.MaxUint64%(span+1)
	for {
		v := g.faker.Rand.Uint64()
		if v < limit {
			return int64(uint64(lo) + v%(span+1))
		}
	}
}

func round(v float64, precision int64) float64 {
	p := math.Pow(10, float64(precision))
	if math.IsInf(v*p, 0) {
		return v
	}
	return math.Round(v*p) / p
}

var catalog = []Provider{
	{
		Name:        "uuid",
		Description: "Random identifiers",
		Methods: []Method{
			{
				Name:        "v4",
				Description: "Random version 4 UUID",
				Returns:     types.TypeString,
				build: func(g *gen, _ Params) Generator {
					return func() (any, error) {
						id, err := uuid.NewRandomFromReader(g.faker.Rand)
						if err != nil {
							return nil, fmt.Errorf("failed to generate uuid: %w", err)
						}
						return id.String(), nil
					}
				},
			},
		},
	},
	{
		Name:        "number",
		Description: "Numeric ranges",
		Methods: []Method{
			{
				Name:        "integer",
				Description: "Integer in [min, max]",
				Returns:     types.TypeNumber,
				Params: []ParamSpec{
					{Name: "min", Kind: KindInt, Default: "0"},
					{Name: "max", Kind: KindInt, Default: "1000"},
				},
				check: intRangeCheck("min", "max"),
				build: func(g *gen, p Params) Generator {
					lo, hi := p.Int("min"), p.Int("max")
					return func() (any, error) {
						return intBetween(g, lo, hi), nil
					}
				},
			},
			{
				Name:        "float",
				Description: "Decimal number in [min, max] rounded to precision digits",
				Returns:     types.TypeNumber,
				Params: []ParamSpec{
					{Name: "min", Kind: KindFloat, Default: "0"},
					{Name: "max", Kind: KindFloat, Default: "1"},
					{Name: "precision", Kind: KindInt, Default: "2", Min: bound(0), Max: bound(10)},
				},
				check: rangeCheck("min", "max"),
				build: func(g *gen, p Params) Generator {
					lo, hi, prec := p.Float("min"), p.Float("max"), p.Int("precision")
					return func() (any, error) {
						u := g.faker.Rand.Float64()
						return round(lo*(1-u)+hi*u, prec), nil
					}
				},
			},
		},
	},
	{
		Name:        "boolean",
		Description: "True/false flags",
		Methods: []Method{
			{
				Name:        "bool",
				Description: "True with the given probability",
				Returns:     types.TypeBoolean,
				Params: []ParamSpec{
					{Name: "probability", Kind: KindFloat, Default: "0.5", Min: bound(0), Max: bound(1)},
				},
				build: func(g *gen, p Params) Generator {
					prob := p.Float("probability")
					return func() (any, error) { return g.faker.Rand.Float64() < prob, nil }
				},
			},
		},
	},
	{
		Name:        "person",
		Description: "People",
		Methods: []Method{
			{Name: "name", Description: "Full name", Returns: types.TypeString, build: text(func(g *gen) string { return g.faker.Name() })},
			{Name: "first_name", Description: "Given name", Returns: types.TypeString, build: text(func(g *gen) string { return g.faker.FirstName() })},
			{Name: "last_name", Description: "Family name", Returns: types.TypeString, build: text(func(g *gen) string { return g.faker.LastName() })},
			{Name: "gender", Description: "Gender", Returns: types.TypeString, build: text(func(g *gen) string { return g.faker.Gender() })},
			{Name: "ssn", Description: "US social security number", Returns: types.TypeString, build: text(func(g *gen) string { return g.faker.SSN() })},
			{Name: "job_title", Description: "Job title", Returns: types.TypeString, build: text(func(g *gen) string { return g.faker.JobTitle() })},
			{Name: "language", Description: "Spoken language", Returns: types.TypeString, build: text(func(g *gen) string { return g.faker.Language() })},
			{
				Name:        "date_of_birth",
				Description: "Birth date for an age in [min_age, max_age]",
				Returns:     types.TypeDate,
				Params: []ParamSpec{
					{Name: "min_age", Kind: KindInt, Default: "18", Min: bound(0), Max: bound(150)},
					{Name: "max_age", Kind: KindInt, Default: "90", Min: bound(0), Max: bound(150)},
				},
				check: rangeCheck("min_age", "max_age"),
				build: func(g *gen, p Params) Generator {
					youngest := g.now.AddDate(-int(p.Int("min_age")), 0, 0)
					oldest := g.now.AddDate(-int(p.Int("max_age"))-1, 0, 1)
					return func() (any, error) {
						return between(g, oldest, youngest).Truncate(day), nil
					}
				},
			},
		},
	},
	{
		Name:        "address",
		Description: "Postal addresses and coordinates",
		Methods: []Method{
			{Name: "street_address", Description: "Street line", Returns: types.TypeString, build: text(func(g *gen) string { return g.faker.Street() })},
			{Name: "city", Description: "City", Returns: types.TypeString, build: text(func(g *gen) string { return g.faker.City() })},
			{Name: "state", Description: "US state", Returns: types.TypeString, build: text(func(g *gen) string { return g.faker.State() })},
			{Name: "state_abbr", Description: "US state abbreviation", Returns: types.TypeString, build: text(func(g *gen) string { return g.faker.StateAbr() })},
			{Name: "zipcode", Description: "Postal code", Returns: types.TypeString, build: text(func(g *gen) string { return g.faker.Zip() })},
			{Name: "country", Description: "Country name", Returns: types.TypeString, build: text(func(g *gen) string { return g.faker.Country() })},
			{Name: "country_code", Description: "Two-letter country code", Returns: types.TypeString, build: text(func(g *gen) string { return g.faker.CountryAbr() })},
			{Name: "latitude", Description: "Latitude", Returns: types.TypeNumber, build: number(func(g *gen) float64 { return round(g.faker.Latitude(), 6) })},
			{Name: "longitude", Description: "Longitude", Returns: types.TypeNumber, build: number(func(g *gen) float64 { return round(g.faker.Longitude(), 6) })},
		},
	},
	{
		Name:        "phone",
		Description: "Phone numbers",
		Methods: []Method{
			{Name: "phone_number", Description: "Ten-digit phone number", Returns: types.TypeString, build: text(func(g *gen) string { return g.faker.Phone() })},
		},
	},
	{
		Name:        "internet",
		Description: "Online identities and addresses",
		Methods: []Method{
			{Name: "email", Description: "Email address", Returns: types.TypeString, build: text(func(g *gen) string { return g.faker.Email() })},
			{Name: "username", Description: "User name", Returns: types.TypeString, build: text(func(g *gen) string { return g.faker.Username() })},
			{Name: "url", Description: "URL", Returns: types.TypeString, build: text(func(g *gen) string { return g.faker.URL() })},
			{Name: "domain_name", Description: "Domain name", Returns: types.TypeString, build: text(func(g *gen) string { return g.faker.DomainName() })},
			{Name: "ipv4", Description: "IPv4 address", Returns: types.TypeString, build: text(func(g *gen) string { return g.faker.IPv4Address() })},
			{Name: "ipv6", Description: "IPv6 address", Returns: types.TypeString, build: text(func(g *gen) string { return g.faker.IPv6Address() })},
			{Name: "mac_address", Description: "MAC address", Returns: types.TypeString, build: text(func(g *gen) string { return g.faker.MacAddress() })},
			{Name: "user_agent", Description: "Browser user agent", Returns: types.TypeString, build: text(func(g *gen) string { return g.faker.UserAgent() })},
			{
				Name:        "password",
				Description: "Password of the given length",
				Returns:     types.TypeString,
				Params: []ParamSpec{
					{Name: "length", Kind: KindInt, Default: "12", Min: bound(4), Max: bound(128)},
				},
				build: func(g *gen, p Params) Generator {
					n := int(p.Int("length"))
					return func() (any, error) {
						return g.faker.Password(true, true, true, true, false, n), nil
					}
				},
			},
		},
	},
	{
		Name:        "company",
		Description: "Companies",
		Methods: []Method{
			{Name: "name", Description: "Company name", Returns: types.TypeString, build: text(func(g *gen) string { return g.faker.Company() })},
			{Name: "suffix", Description: "Company suffix", Returns: types.TypeString, build: text(func(g *gen) string { return g.faker.CompanySuffix() })},
			{Name: "bs", Description: "Business speak", Returns: types.TypeString, build: text(func(g *gen) string { return g.faker.BS() })},
			{Name: "buzzword", Description: "Buzzword", Returns: types.TypeString, build: text(func(g *gen) string { return g.faker.BuzzWord() })},
		},
	},
	{
		Name:        "commerce",
		Description: "Products and prices",
		Methods: []Method{
			{Name: "product_name", Description: "Product name", Returns: types.TypeString, build: text(func(g *gen) string { return g.faker.ProductName() })},
			{Name: "product_category", Description: "Product category", Returns: types.TypeString, build: text(func(g *gen) string { return g.faker.ProductCategory() })},
			{
				Name:        "price",
				Description: "Price in [min, max] with two decimals",
				Returns:     types.TypeNumber,
				Params: []ParamSpec{
					{Name: "min", Kind: KindFloat, Default: "1", Min: bound(0)},
					{Name: "max", Kind: KindFloat, Default: "1000", Min: bound(0)},
				},
				check: rangeCheck("min", "max"),
				build: func(g *gen, p Params) Generator {
					lo, hi := p.Float("min"), p.Float("max")
					return func() (any, error) {
						return round(lo+g.faker.Rand.Float64()*(hi-lo), 2), nil
					}
				},
			},
			{Name: "currency_code", Description: "ISO currency code", Returns: types.TypeString, build: text(func(g *gen) string { return g.faker.CurrencyShort() })},
		},
	},
	{
		Name:        "finance",
		Description: "Payment cards",
		Methods: []Method{
			{Name: "credit_card_number", Description: "Luhn-valid card number", Returns: types.TypeString, build: text(func(g *gen) string { return g.faker.CreditCardNumber(nil) })},
			{Name: "credit_card_provider", Description: "Card network", Returns: types.TypeString, build: text(func(g *gen) string { return g.faker.CreditCardType() })},
			{Name: "credit_card_expiry", Description: "Expiry as MM/YY", Returns: types.TypeString, build: text(func(g *gen) string { return g.faker.CreditCardExp() })},
			{Name: "credit_card_cvv", Description: "Security code", Returns: types.TypeString, build: text(func(g *gen) string { return g.faker.CreditCardCvv() })},
		},
	},
	{
		Name:        "datetime",
		Description: "Dates and timestamps",
		Methods: []Method{
			{
				Name:        "past",
				Description: "Timestamp within the last days",
				Returns:     types.TypeDate,
				Params: []ParamSpec{
					{Name: "days", Kind: KindInt, Default: "365", Min: bound(1), Max: bound(36500)},
				},
				build: func(g *gen, p Params) Generator {
					from := g.now.Add(-time.Duration(p.Int("days")) * day)
					return func() (any, error) { return between(g, from, g.now), nil }
				},
			},
			{
				Name:        "future",
				Description: "Timestamp within the next days",
				Returns:     types.TypeDate,
				Params: []ParamSpec{
					{Name: "days", Kind: KindInt, Default: "365", Min: bound(1), Max: bound(36500)},
				},
				build: func(g *gen, p Params) Generator {
					to := g.now.Add(time.Duration(p.Int("days")) * day)
					return func() (any, error) { return between(g, g.now, to), nil }
				},
			},
			{
				Name:        "between",
				Description: "Timestamp between start and end (YYYY-MM-DD)",
				Returns:     types.TypeDate,
				Params: []ParamSpec{
					{Name: "start", Kind: KindDate, Required: true},
					{Name: "end", Kind: KindDate, Required: true},
				},
				check: func(p Params) *paramError {
					if p.Date("start").After(p.Date("end")) {
						return &paramError{param: "start", reason: "start must not be after end"}
					}
					return nil
				},
				build: func(g *gen, p Params) Generator {
					from, to := p.Date("start"), p.Date("end").Add(day-time.Second)
					return func() (any, error) { return between(g, from, to), nil }
				},
			},
		},
	},
	{
		Name:        "lorem",
		Description: "Filler text",
		Methods: []Method{
			{Name: "word", Description: "Single word", Returns: types.TypeString, build: text(func(g *gen) string { return g.faker.Word() })},
			{
				Name:        "sentence",
				Description: "Sentence with the given number of words",
				Returns:     types.TypeString,
				Params: []ParamSpec{
					{Name: "words", Kind: KindInt, Default: "8", Min: bound(1), Max: bound(100)},
				},
				build: func(g *gen, p Params) Generator {
					n := int(p.Int("words"))
					return func() (any, error) { return g.faker.Sentence(n), nil }
				},
			},
			{
				Name:        "paragraph",
				Description: "Paragraph with the given number of sentences",
				Returns:     types.TypeString,
				Params: []ParamSpec{
					{Name: "sentences", Kind: KindInt, Default: "4", Min: bound(1), Max: bound(50)},
				},
				build: func(g *gen, p Params) Generator {
					n := int(p.Int("sentences"))
					return func() (any, error) { return g.faker.Paragraph(1, n, 10, " "), nil }
				},
			},
			{
				Name:        "text",
				Description: "Text of at most max_chars characters",
				Returns:     types.TypeString,
				Params: []ParamSpec{
					{Name: "max_chars", Kind: KindInt, Default: "200", Min: bound(5), Max: bound(10000)},
				},
				build: func(g *gen, p Params) Generator {
					limit := int(p.Int("max_chars"))
					return func() (any, error) {
						var b strings.Builder
						for b.Len() < limit {
							if b.Len() > 0 {
								b.WriteByte(' ')
							}
							b.WriteString(g.faker.Sentence(10))
						}
						s := b.String()
						if len(s) > limit {
							s = strings.TrimSpace(s[:limit])
						}
						return s, nil
					}
				},
			},
		},
	},
	{
		Name:        "pattern",
		Description: "Templated strings: # becomes a digit, ? a letter",
		Methods: []Method{
			{
				Name:        "numerify",
				Description: "Replace every # with a digit",
				Returns:     types.TypeString,
				Params:      []ParamSpec{{Name: "pattern", Kind: KindString, Required: true, Min: bound(1)}},
				build: func(g *gen, p Params) Generator {
					pattern := p.String("pattern")
					return func() (any, error) { return g.faker.Numerify(pattern), nil }
				},
			},
			{
				Name:        "lexify",
				Description: "Replace every ? with a letter",
				Returns:     types.TypeString,
				Params: []ParamSpec{
					{Name: "pattern", Kind: KindString, Required: true, Min: bound(1)},
					{Name: "upper", Kind: KindBool, Default: "false"},
				},
				build: func(g *gen, p Params) Generator {
					pattern, upper := p.String("pattern"), p.Bool("upper")
					return func() (any, error) {
						s := g.faker.Lexify(pattern)
						if upper {
							s = strings.ToUpper(s)
						}
						return s, nil
					}
				},
			},
			{
				Name:        "bothify",
				Description: "Replace # with digits and ? with letters",
				Returns:     types.TypeString,
				Params: []ParamSpec{
					{Name: "pattern", Kind: KindString, Required: true, Min: bound(1)},
					{Name: "upper", Kind: KindBool, Default: "false"},
				},
				build: func(g *gen, p Params) Generator {
					pattern, upper := p.String("pattern"), p.Bool("upper")
					return func() (any, error) {
						s := g.faker.Lexify(g.faker.Numerify(pattern))
						if upper {
							s = strings.ToUpper(s)
						}
						return s, nil
					}
				},
			},
		},
	},
	{
		Name:        "choice",
		Description: "Pick from a fixed list",
		Methods: []Method{
			{
				Name:        "pick",
				Description: "One of the |-separated options",
				Returns:     types.TypeString,
				Params:      []ParamSpec{{Name: "options", Kind: KindString, Required: true, Min: bound(1)}},
				check: func(p Params) *paramError {
					if len(p.List("options")) == 0 {
						return &paramError{param: "options", reason: "at least one option is required"}
					}
					return nil
				},
				build: func(g *gen, p Params) Generator {
					options := p.List("options")
					return func() (any, error) {
						return options[g.faker.Rand.Intn(len(options))], nil
					}
				},
			},
		},
	},
	{
		Name:        "color",
		Description: "Colors",
		Methods: []Method{
			{Name: "name", Description: "Color name", Returns: types.TypeString, build: text(func(g *gen) string { return g.faker.Color() })},
			{Name: "hex", Description: "Hex color code", Returns: types.TypeString, build: text(func(g *gen) string { return g.faker.HexColor() })},
		},
	},
}
