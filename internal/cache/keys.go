package cache

// Key builders. Keeping them here avoids fmt.Sprintf drift between the
// writers and the invalidators.

func EntitlementsKey(customerID string) string {
	return "entitlements:customer:" + customerID
}

func DashboardStatsKey() string {
	return "dashboard:stats"
}
