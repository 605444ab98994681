package redis

import "fmt"

const ns = "moodcafe:v1"

func KeyStore(key string) string {
	return fmt.Sprintf("%s:store:%s", ns, key)
}

func KeyRateLimit(scope, id string) string {
	return fmt.Sprintf("%s:rl:%s:%s", ns, scope, id)
}

func KeyIdemBooking(kind, idemKey string) string {
	return fmt.Sprintf("%s:idem:bookings:%s:%s", ns, kind, idemKey)
}

func PrefixLimiter() string {
	return ns + ":limiter"
}

func ChannelStoreChanged() string {
	return ns + ":store:changed"
}
