package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"time"

	"taskdeck/sdk/go/taskdeck"
)

func main() {
	baseURL := flag.String("url", "http://localhost:3000", "TaskDeck API address")
	user := flag.String("user", "admin", "login username")
	pass := flag.String("password", "password", "login password")
	flag.Parse()

	client, err := taskdeck.NewClient(*baseURL, nil)
	if err != nil {
		log.Fatal(err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	name, err := client.Login(ctx, *user, *pass)
	if err != nil {
		log.Fatal(err)
	}
	fmt.Printf("logged in as %s\n", name)

	label := "daily"
	title := func(s string) *string { return &s }
	id, err := client.SaveTemplate(ctx, &label, []taskdeck.TaskInput{
		{Title: title("stand-up")},
		{Title: title("review inbox")},
	})
	if err != nil {
		log.Fatal(err)
	}
	if err := client.ApplyTemplate(ctx, id); err != nil {
		log.Fatal(err)
	}

	tasks, err := client.ListTasks(ctx, taskdeck.ListTasksOptions{})
	if err != nil {
		log.Fatal(err)
	}
	for _, t := range tasks {
		fmt.Printf("#%d %s done=%v\n", t.ID, deref(t.Title), t.Done())
	}
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
