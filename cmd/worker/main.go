package main

import "hrms/internal/app/worker"

func main() {
	worker.Run()
}
