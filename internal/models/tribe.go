package models

type Tribe string

const (
	TribeFofo  Tribe = "FOFO"
	TribeCaos  Tribe = "CAOS"
	TribeChad  Tribe = "CHAD"
	TribeDegen Tribe = "DEGEN"
)

var Tribes = []Tribe{TribeFofo, TribeCaos, TribeChad, TribeDegen}

func ToTribe(s string) Tribe {
	for _, t := range Tribes {
		if string(t) == s {
			return t
		}
	}
	return ""
}

func (t Tribe) Valid() bool {
	return ToTribe(string(t)) != ""
}

// Each tribe carries one small symmetric bonus. Combat bonuses fold into
// effective power before the win-probability curve, raid bonuses into raid
// damage, feed bonuses into power gained per feed.
func (t Tribe) CombatBonus() float64 {
	if t == TribeChad {
		return 0.10
	}
	return 0
}

func (t Tribe) RaidBonus() float64 {
	if t == TribeDegen {
		return 0.10
	}
	return 0
}

func (t Tribe) FeedBonus() float64 {
	if t == TribeFofo {
		return 0.10
	}
	return 0
}

func (t Tribe) LuckBonus() float64 {
	if t == TribeCaos {
		return 0.05
	}
	return 0
}
