package states

type State string

const (
	StateNone State = "none"
)

// upr -> user promo
const (
	UserPromoWaitCode State = "upr_wt_code"
)
