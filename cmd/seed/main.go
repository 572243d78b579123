package main

import (
	"context"
	"log"
	"os"
	"time"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"interviewai/internal/model"
	"interviewai/internal/repository"
)

const jsLanguageID = 93

type seedQuestion struct {
	text       string
	category   model.Category
	difficulty model.Difficulty
	languageID bool
}

var bank = []seedQuestion{
	{text: "Tell me about yourself.", category: model.CategoryBehavioral, difficulty: model.DifficultyEasy},
	{text: "What are your biggest strengths?", category: model.CategoryBehavioral, difficulty: model.DifficultyEasy},
	{text: "Tell me about a time you had to work with a difficult coworker.", category: model.CategoryBehavioral, difficulty: model.DifficultyMedium},
	{text: "Describe a project you are particularly proud of.", category: model.CategoryBehavioral, difficulty: model.DifficultyMedium},
	{text: "Describe a time you failed. What did you learn from it?", category: model.CategoryBehavioral, difficulty: model.DifficultyHard},
	{text: "Tell me about a time you had to make a critical decision with limited information.", category: model.CategoryBehavioral, difficulty: model.DifficultyHard},

	{text: "What is an API?", category: model.CategoryTheory, difficulty: model.DifficultyEasy},
	{text: "Explain the difference between SQL and NoSQL databases.", category: model.CategoryTheory, difficulty: model.DifficultyMedium},
	{text: "What is polymorphism in object-oriented programming? Provide an example.", category: model.CategoryTheory, difficulty: model.DifficultyHard},

	{text: "Write a function that returns the largest number in an array.", category: model.CategoryCoding, difficulty: model.DifficultyEasy, languageID: true},
	{text: "Write a function to check if a string is a palindrome.", category: model.CategoryCoding, difficulty: model.DifficultyMedium, languageID: true},
	{text: "Given a sorted array of integers, write a function that finds the first and last position of a given target value (Binary Search).", category: model.CategoryCoding, difficulty: model.DifficultyHard, languageID: true},
}

func main() {
	mongoURI := os.Getenv("MONGO_URI")
	if mongoURI == "" {
		mongoURI = "mongodb://localhost:27017"
	}
	dbName := os.Getenv("MONGO_DB")
	if dbName == "" {
		dbName = "interviewai"
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(mongoURI))
	if err != nil {
		log.Fatalf("Failed to connect to MongoDB: %v", err)
	}
	defer client.Disconnect(ctx)

	db := client.Database(dbName)
	questions := repository.NewQuestionRepo(db)
	if err := questions.EnsureIndexes(ctx); err != nil {
		log.Fatalf("Failed to create question indexes: %v", err)
	}

	created, skipped := 0, 0
	for _, sq := range bank {
		existing, err := questions.GetByText(ctx, sq.text)
		if err != nil {
			log.Fatalf("Failed to look up question: %v", err)
		}
		if existing != nil {
			skipped++
			continue
		}

		question := &model.Question{
			Text:       sq.text,
			Category:   sq.category,
			Difficulty: sq.difficulty,
			Source:     model.SourceSeed,
		}
		if sq.languageID {
			langID := jsLanguageID
			question.LanguageID = &langID
		}
		if err := questions.Create(ctx, question); err != nil {
			log.Fatalf("Failed to create question %q: %v", sq.text, err)
		}
		created++
	}

	log.Printf("Question bank seeded: %d created, %d already present", created, skipped)
}
