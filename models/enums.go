package models

// Season tags the tournament edition a user registered in.
type Season string

const (
	SeasonS1 Season = "S1"
	SeasonS2 Season = "S2"
)

// Seasons lists every season in declaration order. The first entry is the
// fallback used when no tournament config exists yet.
var Seasons = []Season{SeasonS1, SeasonS2}

func (s Season) Valid() bool {
	for _, v := range Seasons {
		if v == s {
			return true
		}
	}
	return false
}

// Category is the bracket stage the tournament is currently running.
type Category string

const (
	CategoryQUA  Category = "QUA"
	CategoryRO16 Category = "RO16"
	CategoryQF   Category = "QF"
	CategorySF   Category = "SF"
	CategoryF    Category = "F"
	CategoryGF   Category = "GF"
)

var Categories = []Category{CategoryQUA, CategoryRO16, CategoryQF, CategorySF, CategoryF, CategoryGF}

func (c Category) Valid() bool {
	for _, v := range Categories {
		if v == c {
			return true
		}
	}
	return false
}

// UserState is the lifecycle state of a registered player.
type UserState string

const (
	UserStateActive   UserState = "ACTIVE"
	UserStateInactive UserState = "INACTIVE"
	UserStateBanned   UserState = "BANNED"
	UserStateDeleted  UserState = "DELETED"
)

var UserStates = []UserState{UserStateActive, UserStateInactive, UserStateBanned, UserStateDeleted}

func (s UserState) Valid() bool {
	for _, v := range UserStates {
		if v == s {
			return true
		}
	}
	return false
}

// Option is a value/label pair rendered by the debug UI selects.
type Option struct {
	Value string `json:"value"`
	Label string `json:"label"`
}

var seasonLabels = map[Season]string{
	SeasonS1: "S1",
	SeasonS2: "S2",
}

var categoryLabels = map[Category]string{
	CategoryQUA:  "资格赛QUA",
	CategoryRO16: "RO16",
	CategoryQF:   "四分之一决赛QF",
	CategorySF:   "半决赛SF",
	CategoryF:    "决赛F",
	CategoryGF:   "总决赛GF",
}

func SeasonOptions() []Option {
	out := make([]Option, 0, len(Seasons))
	for _, s := range Seasons {
		out = append(out, Option{Value: string(s), Label: labelOr(seasonLabels[s], string(s))})
	}
	return out
}

func CategoryOptions() []Option {
	out := make([]Option, 0, len(Categories))
	for _, c := range Categories {
		out = append(out, Option{Value: string(c), Label: labelOr(categoryLabels[c], string(c))})
	}
	return out
}

func labelOr(label, fallback string) string {
	if label == "" {
		return fallback
	}
	return label
}
