package redis

import "fmt"

// Key prefix for all score data
const keyPrefix = "scores"

// playerKey returns the Redis key for a player's record hash
func playerKey(playerName string) string {
	return fmt.Sprintf("%s:player:%s", keyPrefix, playerName)
}

// rankingKey returns the Redis key for the score sorted set
func rankingKey() string {
	return fmt.Sprintf("%s:ranking", keyPrefix)
}
