// internal/domain/exercise.go
package domain

// Exercise is one movement prescribed on a workout day.
type Exercise struct {
	Name        string `bson:"name" json:"name"`
	Sets        int    `bson:"sets,omitempty" json:"sets,omitempty"`
	Reps        string `bson:"reps,omitempty" json:"reps,omitempty"` // e.g. "8-12", "AMRAP"
	RestSeconds int    `bson:"restSeconds,omitempty" json:"restSeconds,omitempty"`
	Notes       string `bson:"notes,omitempty" json:"notes,omitempty"`
}

// Meal is one meal prescribed on a nutrition day.
type Meal struct {
	Type        string   `bson:"type" json:"type"` // breakfast, lunch, dinner, snack
	Name        string   `bson:"name" json:"name"`
	Calories    int      `bson:"calories" json:"calories"`
	ProteinG    float64  `bson:"proteinG" json:"proteinG"`
	CarbsG      float64  `bson:"carbsG" json:"carbsG"`
	FatG        float64  `bson:"fatG" json:"fatG"`
	Ingredients []string `bson:"ingredients,omitempty" json:"ingredients,omitempty"`
}
