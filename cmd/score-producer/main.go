package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"math/rand"
	"os"
	"os/signal"
	"strings"
	"sync"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/IBM/sarama"

	"github.com/score-tracker/internal/kafka"
)

var playerPrefixes = []string{
	"Phoenix", "Shadow", "Thunder", "Storm", "Blaze", "Ninja", "Dragon", "Wolf", "Hawk", "Viper",
	"Ghost", "Titan", "Frost", "Cyber", "Nova", "Raven", "Omega", "Alpha", "Delta", "Sigma",
}

func getPlayerName(idx int) string {
	prefixIdx := idx % len(playerPrefixes)
	suffix := idx/len(playerPrefixes) + 1
	return fmt.Sprintf("%s%d", playerPrefixes[prefixIdx], suffix)
}

// randomResult returns a score and completion time; players near the top of
// the index range score higher and finish faster
func randomResult(playerIdx int) (int64, float64) {
	var score int64
	switch {
	case playerIdx < 10:
		score = int64(rand.Intn(800) + 400)
	case playerIdx < 50:
		score = int64(rand.Intn(600) + 300)
	default:
		score = int64(rand.Intn(400) + 200)
	}
	timeTaken := 30 + rand.Float64()*float64(90+playerIdx%60)
	return score, float64(int(timeTaken*100)) / 100
}

// hotPlayers is the size of the group that receives most updates
const hotPlayers = 20

// pickPlayer returns a player index in [0, total); 70% of picks land in the
// first hotPlayers indexes
func pickPlayer(total int) int {
	hot := min(hotPlayers, total)
	if total == hot || rand.Intn(100) < 70 {
		return rand.Intn(hot)
	}
	return rand.Intn(total-hot) + hot
}

func main() {
	brokers := flag.String("brokers", "localhost:9092", "Kafka brokers (comma-separated)")
	topic := flag.String("topic", "player-scores", "Kafka topic")
	totalPlayers := flag.Int("players", 100, "Number of distinct players to update")
	updatesPerSecond := flag.Int("rate", 50, "Updates per second")
	duration := flag.Duration("duration", 0, "Duration to run (0 = until interrupted)")
	flag.Parse()

	if *totalPlayers <= 0 {
		log.Fatalf("players must be positive, got %d", *totalPlayers)
	}
	if *updatesPerSecond <= 0 {
		log.Fatalf("rate must be positive, got %d", *updatesPerSecond)
	}

	brokerList := strings.Split(*brokers, ",")

	fmt.Println("Score producer")
	fmt.Printf("  Brokers:      %s\n", *brokers)
	fmt.Printf("  Topic:        %s\n", *topic)
	fmt.Printf("  Players:      %d\n", *totalPlayers)
	fmt.Printf("  Updates/sec:  %d\n", *updatesPerSecond)
	fmt.Println()
	fmt.Println("Players must already be signed up; updates for unknown players are skipped by the server.")
	fmt.Println("Press Ctrl+C to stop")
	fmt.Println()

	config := sarama.NewConfig()
	config.Producer.RequiredAcks = sarama.WaitForLocal
	config.Producer.Compression = sarama.CompressionSnappy
	config.Producer.Flush.Frequency = 100 * time.Millisecond
	config.Producer.Flush.Messages = 100
	config.Producer.Return.Successes = true
	config.Producer.Return.Errors = true

	producer, err := sarama.NewAsyncProducer(brokerList, config)
	if err != nil {
		log.Fatalf("Failed to create producer: %v", err)
	}

	var successCount, errorCount, updateCount int64
	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		for range producer.Successes() {
			atomic.AddInt64(&successCount, 1)
		}
	}()

	wg.Add(1)
	go func() {
		defer wg.Done()
		for err := range producer.Errors() {
			atomic.AddInt64(&errorCount, 1)
			log.Printf("Producer error: %v", err)
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	shutdown := func(reason string) {
		fmt.Printf("\n%s, shutting down...\n", reason)
		producer.AsyncClose()
		wg.Wait()
		fmt.Printf("Completed. Updates: %d, Sent: %d, Errors: %d\n",
			atomic.LoadInt64(&updateCount),
			atomic.LoadInt64(&successCount),
			atomic.LoadInt64(&errorCount),
		)
	}

	send := func(msg kafka.ScoreMessage) {
		data, err := json.Marshal(msg)
		if err != nil {
			log.Printf("Failed to marshal message: %v", err)
			return
		}
		producer.Input() <- &sarama.ProducerMessage{
			Topic: *topic,
			Key:   sarama.StringEncoder(msg.PlayerName),
			Value: sarama.ByteEncoder(data),
		}
		atomic.AddInt64(&updateCount, 1)
	}

	ticker := time.NewTicker(time.Second / time.Duration(*updatesPerSecond))
	defer ticker.Stop()

	statsTicker := time.NewTicker(5 * time.Second)
	defer statsTicker.Stop()

	var deadline <-chan time.Time
	if *duration > 0 {
		deadline = time.After(*duration)
	}

	for {
		select {
		case <-sigChan:
			shutdown("Interrupted")
			return

		case <-deadline:
			shutdown("Duration reached")
			return

		case <-ticker.C:
			playerIdx := pickPlayer(*totalPlayers)
			score, timeTaken := randomResult(playerIdx)
			send(kafka.ScoreMessage{
				PlayerName: getPlayerName(playerIdx),
				Score:      score,
				TimeTaken:  timeTaken,
			})

		case <-statsTicker.C:
			fmt.Printf("[%s] Updates: %d | Sent: %d | Errors: %d\n",
				time.Now().Format("15:04:05"),
				atomic.LoadInt64(&updateCount),
				atomic.LoadInt64(&successCount),
				atomic.LoadInt64(&errorCount),
			)
		}
	}
}
