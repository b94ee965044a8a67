package shortcode_test

import (
	"fmt"

	"github.com/tempizhere/linkgate/internal/shortcode"
)

// ExampleGenerate демонстрирует генерацию и проверку кода
func ExampleGenerate() {
	code, err := shortcode.Generate(shortcode.DefaultLength)
	if err != nil {
		fmt.Printf("Ошибка генерации кода: %v\n", err)
		return
	}

	fmt.Printf("Длина кода: %d\n", len(code))
	fmt.Printf("Код допустим: %t\n", shortcode.Validate(code))

	// Output:
	// Длина кода: 6
	// Код допустим: true
}

// ExampleValidate демонстрирует проверку пользовательских кодов
func ExampleValidate() {
	fmt.Println(shortcode.Validate("ab"))
	fmt.Println(shortcode.Validate("a_b"))
	fmt.Println(shortcode.Validate("abc"))

	// Output:
	// false
	// false
	// true
}
