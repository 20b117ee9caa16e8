package main

import (
	"fmt"
	"os"
	"os/exec"
)

func main() {
	fmt.Println("🚀 Setting up Charge Gateway Development Environment")

	// Check Docker
	if err := checkDocker(); err != nil {
		fmt.Printf("⚠️  Docker issue detected: %v\n", err)
		fmt.Println("💡 You can still run with mock events and the in-memory store: make dev-mock")
		return
	}

	fmt.Println("✅ Docker is running")
	fmt.Println("🐳 Starting Kafka, Redis and MySQL services...")

	cmd := exec.Command("docker-compose", "up", "-d", "kafka", "redis", "mysql")
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr

	if err := cmd.Run(); err != nil {
		fmt.Printf("❌ Failed to start services: %v\n", err)
		fmt.Println("💡 Try: make dev-mock")
		return
	}

	fmt.Println("✅ Services started successfully!")
	fmt.Println("🎯 Run: make dev")
}

func checkDocker() error {
	cmd := exec.Command("docker", "info")
	return cmd.Run()
}
