package flows

// PromoFlowData - data for promo code input
type PromoFlowData struct {
	UserID   int64
	Language string
}
