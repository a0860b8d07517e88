package domain

import (
	"errors"
	"reflect"
	"testing"

	"github.com/google/uuid"
)

func testVariations() []Variation {
	return []Variation{
		{ID: uuid.MustParse("11111111-1111-1111-1111-111111111111"), Stock: 5, Attributes: map[string]string{"Color": "Rojo", "Talla": "M"}},
		{ID: uuid.MustParse("22222222-2222-2222-2222-222222222222"), Stock: 0, Attributes: map[string]string{"Color": "Rojo", "Talla": "L"}},
		{ID: uuid.MustParse("33333333-3333-3333-3333-333333333333"), Stock: 3, Attributes: map[string]string{"Color": "Azul", "Talla": "M"}},
	}
}

func TestAvailableValues(t *testing.T) {
	vars := testVariations()

	cases := []struct {
		name string
		kind string
		sel  Selection
		want []string
	}{
		{"sin seleccion lista todos los colores", "Color", Selection{}, []string{"Azul", "Rojo"}},
		{"sin seleccion lista tallas con stock", "Talla", Selection{}, []string{"M"}},
		{"talla restringida por color rojo excluye agotada", "Talla", Selection{"Color": "Rojo"}, []string{"M"}},
		{"color restringido por talla M", "Color", Selection{"Talla": "M"}, []string{"Azul", "Rojo"}},
		{"el propio eje no se restringe a si mismo", "Color", Selection{"Color": "Rojo"}, []string{"Azul", "Rojo"}},
		{"combinacion imposible devuelve vacio", "Talla", Selection{"Color": "Verde"}, []string{}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := AvailableValues(vars, tc.kind, tc.sel)
			if !reflect.DeepEqual(got, tc.want) {
				t.Fatalf("AvailableValues(%q, %v) = %v, quería %v", tc.kind, tc.sel, got, tc.want)
			}
		})
	}
}

func TestAvailableValuesEsPura(t *testing.T) {
	vars := testVariations()
	sel := Selection{"Color": "Rojo"}

	a := AvailableValues(vars, "Talla", sel)
	b := AvailableValues(vars, "Talla", sel)
	if !reflect.DeepEqual(a, b) {
		t.Fatalf("dos llamadas idénticas difieren: %v vs %v", a, b)
	}
	if !reflect.DeepEqual(sel, Selection{"Color": "Rojo"}) {
		t.Fatalf("la selección de entrada fue mutada: %v", sel)
	}
}

func TestAvailableValuesNarrowingMonotonico(t *testing.T) {
	vars := testVariations()

	// agregar restricciones nunca agranda el conjunto de opciones
	sin := AvailableValues(vars, "Talla", Selection{})
	con := AvailableValues(vars, "Talla", Selection{"Color": "Rojo"})
	set := map[string]bool{}
	for _, v := range sin {
		set[v] = true
	}
	for _, v := range con {
		if !set[v] {
			t.Fatalf("valor %q apareció al restringir pero no estaba sin restricción", v)
		}
	}
}

func TestAvailableValuesExcluyeSinStock(t *testing.T) {
	vars := []Variation{
		{ID: uuid.New(), Stock: 0, Attributes: map[string]string{"Color": "Negro", "Talla": "XL"}},
	}
	if got := AvailableValues(vars, "Color", Selection{}); len(got) != 0 {
		t.Fatalf("variación agotada aportó valores: %v", got)
	}
}

func TestResolveVariation(t *testing.T) {
	vars := testVariations()

	t.Run("seleccion completa resuelve v1", func(t *testing.T) {
		v, err := ResolveVariation(vars, Selection{"Color": "Rojo", "Talla": "M"}, 2)
		if err != nil {
			t.Fatal(err)
		}
		if v.ID != vars[0].ID {
			t.Fatalf("resolvió %s, quería v1", v.ID)
		}
	})

	t.Run("solo matchea la agotada", func(t *testing.T) {
		_, err := ResolveVariation(vars, Selection{"Color": "Rojo", "Talla": "L"}, 2)
		if !errors.Is(err, ErrNoMatchingVariation) {
			t.Fatalf("err = %v, quería ErrNoMatchingVariation", err)
		}
	})

	t.Run("seleccion incompleta", func(t *testing.T) {
		_, err := ResolveVariation(vars, Selection{"Color": "Rojo"}, 2)
		if !errors.Is(err, ErrIncompleteSelection) {
			t.Fatalf("err = %v, quería ErrIncompleteSelection", err)
		}
	})

	t.Run("combinacion inexistente", func(t *testing.T) {
		_, err := ResolveVariation(vars, Selection{"Color": "Verde", "Talla": "M"}, 2)
		if !errors.Is(err, ErrNoMatchingVariation) {
			t.Fatalf("err = %v, quería ErrNoMatchingVariation", err)
		}
	})

	t.Run("mas ejes que cualquier variacion", func(t *testing.T) {
		_, err := ResolveVariation(vars, Selection{"Color": "Rojo", "Talla": "M", "Material": "Cuero"}, 2)
		if !errors.Is(err, ErrNoMatchingVariation) {
			t.Fatalf("err = %v, quería ErrNoMatchingVariation", err)
		}
	})
}

// Si la invariante de combinaciones únicas se rompe, la resolución tiene que
// seguir siendo determinística: gana la primera en orden de lista.
func TestResolveVariationDuplicadasGanaLaPrimera(t *testing.T) {
	dup := map[string]string{"Color": "Rojo", "Talla": "M"}
	vars := []Variation{
		{ID: uuid.MustParse("aaaaaaaa-aaaa-aaaa-aaaa-aaaaaaaaaaaa"), Stock: 1, Attributes: dup},
		{ID: uuid.MustParse("bbbbbbbb-bbbb-bbbb-bbbb-bbbbbbbbbbbb"), Stock: 9, Attributes: dup},
	}
	v, err := ResolveVariation(vars, Selection{"Color": "Rojo", "Talla": "M"}, 2)
	if err != nil {
		t.Fatal(err)
	}
	if v.ID != vars[0].ID {
		t.Fatalf("resolvió %s, quería la primera de la lista", v.ID)
	}
}

// El modo legacy (piso de 2 ejes) deja resolver un producto de 3 ejes con
// sólo 2 elegidos: la variación que gana depende del orden de lista, no de
// una elección del comprador. El modo estricto lo rechaza. Comportamiento
// heredado a propósito, no un arreglo pendiente silencioso.
func TestResolverConfigProductoTresEjes(t *testing.T) {
	vars := []Variation{
		{ID: uuid.New(), Stock: 2, Attributes: map[string]string{"Color": "Rojo", "Talla": "M", "Material": "Cuero"}},
		{ID: uuid.New(), Stock: 2, Attributes: map[string]string{"Color": "Rojo", "Talla": "M", "Material": "Lona"}},
	}
	p := &Product{Variations: vars}
	sel := Selection{"Color": "Rojo", "Talla": "M"}

	legacy := ResolverConfig{}
	if _, err := ResolveVariation(vars, sel, legacy.RequiredKinds(p)); err != nil {
		t.Fatalf("modo legacy debía resolver con 2 de 3 ejes, err = %v", err)
	}

	strict := ResolverConfig{Strict: true}
	if _, err := ResolveVariation(vars, sel, strict.RequiredKinds(p)); !errors.Is(err, ErrIncompleteSelection) {
		t.Fatalf("modo estricto con 2 de 3 ejes: err = %v, quería ErrIncompleteSelection", err)
	}
}

func TestSameCombination(t *testing.T) {
	a := Variation{Attributes: map[string]string{"Color": "Rojo", "Talla": "M"}}
	b := Variation{Attributes: map[string]string{"Talla": "M", "Color": "Rojo"}}
	c := Variation{Attributes: map[string]string{"Color": "Rojo", "Talla": "L"}}
	d := Variation{Attributes: map[string]string{"Color": "Rojo"}}

	if !a.SameCombination(b) {
		t.Fatal("misma combinación con distinto orden de claves debía ser igual")
	}
	if a.SameCombination(c) {
		t.Fatal("valor distinto no puede ser la misma combinación")
	}
	// compartir un valor suelto no alcanza: la comparación es por
	// combinación completa, no por solapamiento
	if a.SameCombination(d) {
		t.Fatal("subconjunto no puede ser la misma combinación")
	}
}

func TestKindCount(t *testing.T) {
	p := &Product{Variations: []Variation{
		{Attributes: map[string]string{"Color": "Rojo", "Talla": "M"}},
		{Attributes: map[string]string{"Color": "Azul", "Talla": "L", "Material": "Cuero"}},
	}}
	if got := p.KindCount(); got != 3 {
		t.Fatalf("KindCount = %d, quería 3", got)
	}
}
